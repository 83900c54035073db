package dao

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Отозванный при выходе токен. Хранится до истечения срока действия самого токена.
type RevokedToken struct {
	ID        string    `gorm:"primaryKey"`
	ExpiresAt time.Time `gorm:"index"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

type RevokedTokenStore struct {
	db *gorm.DB
}

func NewRevokedTokenStore(db *gorm.DB) *RevokedTokenStore {
	return &RevokedTokenStore{db: db}
}

// Revoke запоминает идентификатор токена (jti). Повторный отзыв не является ошибкой.
func (s *RevokedTokenStore) Revoke(id string, expiresAt time.Time) error {
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&RevokedToken{ID: id, ExpiresAt: expiresAt}).Error
}

func (s *RevokedTokenStore) IsRevoked(id string) (bool, error) {
	err := s.db.Select("id").Where("id = ?", id).Take(&RevokedToken{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Purge удаляет записи об уже истекших токенах и возвращает их количество.
func (s *RevokedTokenStore) Purge(now time.Time) (int64, error) {
	res := s.db.Where("expires_at < ?", now).Delete(&RevokedToken{})
	return res.RowsAffected, res.Error
}
