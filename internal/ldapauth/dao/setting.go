package dao

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Сохранённые настройки
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// SettingStore - хранилище настроек, последний по приоритету источник для config.Resolver.
type SettingStore struct {
	db *gorm.DB
}

func NewSettingStore(db *gorm.DB) *SettingStore {
	return &SettingStore{db: db}
}

// Lookup возвращает сохранённое значение. Ошибки чтения логируются и считаются отсутствием значения.
func (s *SettingStore) Lookup(key string) (string, bool) {
	var setting Setting
	if err := s.db.Where("key = ?", strings.ToLower(key)).Take(&setting).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("Read setting", "key", key, "err", err)
		}
		return "", false
	}
	return setting.Value, true
}

func (s *SettingStore) Set(key string, value string) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Setting{Key: strings.ToLower(key), Value: value}).Error
}

func (s *SettingStore) Delete(key string) error {
	return s.db.Where("key = ?", strings.ToLower(key)).Delete(&Setting{}).Error
}
