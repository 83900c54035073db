// Основной пакет сервиса LDAP аутентификации. Отвечает за чтение конфигурации, подключение к базе данных,
// миграцию моделей, управление сохранёнными настройками и запуск HTTP сервера.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/aisa-it/ldapauth/internal/ldapauth"
	"github.com/aisa-it/ldapauth/internal/ldapauth/config"
	"github.com/aisa-it/ldapauth/internal/ldapauth/dao"
	"github.com/aisa-it/ldapauth/internal/ldapauth/gormlogger"
)

var version string = "DEV"

const sqliteScheme = "sqlite://"

// Пример запуска: go run main.go --trace --set ldap_server=ldap://dc.example.com --set ldap_dn=dc=example,dc=com
func main() {
	noTranslateFlag := flag.Bool("noTranslate", false, "Turn off BD errors translate")
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")

	var setSettings []string
	var unsetSettings []string
	flag.Func("set", "Store setting `slug=value` in DB and exit (repeatable)", func(s string) error {
		if slug, _, ok := strings.Cut(s, "="); !ok || slug == "" {
			return fmt.Errorf("expected slug=value, got %q", s)
		}
		setSettings = append(setSettings, s)
		return nil
	})
	flag.Func("unset", "Delete stored setting `slug` from DB and exit (repeatable)", func(s string) error {
		if s == "" {
			return fmt.Errorf("empty slug")
		}
		unsetSettings = append(unsetSettings, s)
		return nil
	})
	flag.Parse()

	PrintBanner()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		level := slog.LevelInfo
		if *trace {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	}

	cfg := config.ReadConfig()

	slog.Info("LDAP auth start.")

	db, err := openDB(cfg.DatabaseDSN, &gorm.Config{
		TranslateError: !*noTranslateFlag,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	if !*noMigration {
		if err := dao.Migrate(db); err != nil {
			slog.Error("Migrate models", "err", err)
			os.Exit(1)
		}
	}

	if len(setSettings) > 0 || len(unsetSettings) > 0 {
		if err := manageSettings(dao.NewSettingStore(db), config.NewResolver(cfg.SettingsPrefix, nil, nil), setSettings, unsetSettings); err != nil {
			slog.Error("Update settings", "err", err)
			os.Exit(1)
		}
		return
	}

	ldapauth.Server(db, cfg, version, ldapauth.NewHooks())
}

func openDB(dsn string, gormConfig *gorm.Config) (*gorm.DB, error) {
	if path, ok := strings.CutPrefix(dsn, sqliteScheme); ok {
		db, err := gorm.Open(sqlite.Open(path), gormConfig)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: false,
	}), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 15)
	return db, nil
}

func manageSettings(store *dao.SettingStore, resolver *config.Resolver, set []string, unset []string) error {
	for _, s := range set {
		slug, value, _ := strings.Cut(s, "=")
		key := resolver.Key(slug)
		if err := store.Set(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		slog.Info("Setting stored", "key", key)
	}
	for _, slug := range unset {
		key := resolver.Key(slug)
		if err := store.Delete(key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		slog.Info("Setting deleted", "key", key)
	}
	return nil
}

func PrintBanner() {
	banner := `
 _     ____    _    ____                 _   _
| |   |  _ \  / \  |  _ \   __ _ _   _ _| |_| |__
| |   | | | |/ _ \ | |_) | / _' | | | |_   _| '_ \
| |___| |_| / ___ \|  __/ | (_| | |_| | | | | | | |
|_____|____/_/   \_\_|     \__,_|\__,_| |_| |_| |_| %s
Directory login bridge
----------------------------------------------------
`
	colorReset := "\033[0m"
	colorYellow := "\033[33m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}

	fmt.Printf(banner, formattedVersion)
}
