// DAO (Data Access Object) для локального хранилища пользователей и настроек.
//
// Основные возможности:
//   - Модель пользователя и операции поиска, создания и обновления (UserStore).
//   - Хранилище настроек ключ-значение (SettingStore), используемое как последний источник конфигурации.
//   - Список отозванных при выходе токенов (RevokedTokenStore).
//   - Генерация идентификаторов, случайных паролей и хэшей паролей.
package dao

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"
)

const pbkdf2Iterations = 260000

// Models - модели для автомиграции.
var Models = []any{&User{}, &Setting{}, &RevokedToken{}}

// Migrate создаёт или обновляет таблицы всех моделей.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}

// GenUUID генерирует уникальный идентификатор в формате UUID.
func GenUUID() uuid.UUID {
	u2, _ := uuid.NewV4()
	return u2
}

// GenPassword генерирует случайный пароль. Для пользователей каталога он никогда не используется для входа,
// но хранилище требует непустой пароль.
func GenPassword() string {
	return password.MustGenerate(32, 10, 0, false, true)
}

// Генерация хэша пароля для базы
func GenPasswordHash(password string) string {
	letters := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	salt := make([]rune, 32)
	for i := range salt {
		nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		salt[i] = letters[nBig.Int64()]
	}

	return fmt.Sprintf("pbkdf2_sha256$%d$%s$%s",
		pbkdf2Iterations,
		string(salt),
		base64.StdEncoding.EncodeToString(pbkdf2.Key([]byte(password), []byte(string(salt)), pbkdf2Iterations, 32, sha256.New)),
	)
}

// CheckPassword сверяет пароль с хэшем из базы.
func CheckPassword(password string, hash string) bool {
	ss := strings.Split(hash, "$")
	if len(ss) != 4 || ss[0] != "pbkdf2_sha256" {
		return false
	}
	return base64.StdEncoding.EncodeToString(pbkdf2.Key([]byte(password), []byte(ss[2]), pbkdf2Iterations, 32, sha256.New)) == ss[3]
}
