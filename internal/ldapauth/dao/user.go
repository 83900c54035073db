package dao

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	AuthProviderLocal = "local"
	AuthProviderLdap  = "ldap"
)

var ErrUserAlreadyExists = errors.New("user already exists")

// Пользователи
type User struct {
	ID uuid.UUID `gorm:"column:id;primaryKey;type:text" json:"id"`

	Password    string  `json:"-"`
	Username    *string `json:"username" gorm:"uniqueIndex"`
	Email       string  `json:"email" gorm:"uniqueIndex"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	DisplayName string  `json:"display_name"`

	Role *string `json:"role" extensions:"x-nullable"`

	IsActive     bool   `json:"is_active" gorm:"default:true"`
	AuthProvider string `json:"-" gorm:"default:'local'"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"-"`
	LastLoginTime *time.Time `json:"-" extensions:"x-nullable"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = GenUUID()
	}
	u.Email = strings.ToLower(u.Email)
	return
}

func (u *User) String() string {
	return fmt.Sprintf("%s (%s)", u.ID, u.Email)
}

func (User) TableName() string {
	return "users"
}

// UserFields - изменяемые при провижининге поля. nil означает "не менять".
type UserFields struct {
	DisplayName *string
	FirstName   *string
	LastName    *string
	Role        *string
}

// UserStore - локальное хранилище пользователей поверх gorm.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByEmail ищет пользователя по email без учёта регистра. found == false, если пользователя нет.
func (s *UserStore) FindByEmail(email string) (*User, bool, error) {
	var user User
	if err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &user, true, nil
}

func (s *UserStore) GetByID(id uuid.UUID) (*User, error) {
	var user User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser создаёт пользователя каталога с хэшем переданного пароля.
// Если пользователь с таким email или username уже есть, возвращает ErrUserAlreadyExists.
func (s *UserStore) CreateUser(email string, password string, usernameEqualsEmail bool) (uuid.UUID, error) {
	if password == "" {
		return uuid.Nil, errors.New("empty password")
	}

	user := User{
		Email:        strings.ToLower(email),
		Password:     GenPasswordHash(password),
		IsActive:     true,
		AuthProvider: AuthProviderLdap,
	}
	if usernameEqualsEmail {
		user.Username = &user.Email
	}

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return uuid.Nil, ErrUserAlreadyExists
		}
		return uuid.Nil, err
	}
	return user.ID, nil
}

// UpdateUser обновляет только заданные поля пользователя.
func (s *UserStore) UpdateUser(id uuid.UUID, fields UserFields) error {
	updates := make(map[string]any, 4)
	if fields.DisplayName != nil {
		updates["display_name"] = *fields.DisplayName
	}
	if fields.FirstName != nil {
		updates["first_name"] = *fields.FirstName
	}
	if fields.LastName != nil {
		updates["last_name"] = *fields.LastName
	}
	if fields.Role != nil {
		updates["role"] = *fields.Role
	}
	if len(updates) == 0 {
		return nil
	}

	res := s.db.Model(&User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchLogin фиксирует время последнего входа.
func (s *UserStore) TouchLogin(user *User) error {
	tm := time.Now()
	user.LastLoginTime = &tm
	return s.db.Model(user).Select("LastLoginTime").Updates(user).Error
}
