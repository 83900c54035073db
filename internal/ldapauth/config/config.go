// Управление конфигурацией процесса из переменных окружения.
// Содержит структуру Config для хранения параметров и функцию ReadConfig для их загрузки из переменных окружения.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения с использованием тегов struct.
//   - Валидация обязательных переменных через go-playground/validator.
//   - Преобразование типов данных из переменных окружения (string, int, bool).
//   - Маскировка секретных значений (passwords) в логах.
//   - Предоставление значений по умолчанию для некоторых параметров.
//
// Настройки LDAP (адрес сервера, базовый DN, роль новых пользователей) сюда не входят:
// они разрешаются на каждую попытку входа через Resolver (resolver.go).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator"
)

const (
	DefaultSettingsPrefix    = "ldapauth"
	DefaultLdapTimeout       = 10
	DefaultListenAddr        = ":8080"
	DefaultMetricsAddr       = ":2112"
	DefaultLdapProbeSchedule = "*/5 * * * *"
	DefaultLoginRateLimit    = 20
)

type Config struct {
	SecretKey   string `env:"SECRET_KEY" validate:"required"`
	DatabaseDSN string `env:"DATABASE_URL" validate:"required"`

	SettingsPrefix string `env:"SETTINGS_PREFIX" validate:"required"`

	LdapTimeout       int    `env:"LDAP_TIMEOUT" validate:"min=1,max=300"`
	LdapProbeSchedule string `env:"LDAP_PROBE_SCHEDULE"`
	LdapProbeDisabled bool   `env:"LDAP_PROBE_DISABLED"`

	CaptchaDisabled bool   `env:"CAPTCHA_DISABLED"`
	CaptchaHMACKey  string `env:"CAPTCHA_HMAC_KEY"`

	SwaggerEnable bool `env:"SWAGGER_ENABLE"`

	// Попыток входа с одного IP в минуту, 0 отключает ограничение
	LoginRateLimit int `env:"LOGIN_RATE_LIMIT" validate:"min=0"`

	ListenAddr  string `env:"LISTEN_ADDR" validate:"required"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// ReadConfig загружает конфигурацию процесса из переменных окружения. При ошибке валидации приложение завершает работу.
func ReadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		slog.Error("Config invalid", "err", err)
		os.Exit(1)
	}
	return config
}

// LoadConfig загружает и валидирует конфигурацию, не завершая процесс.
func LoadConfig() (*Config, error) {
	config := &Config{
		SettingsPrefix:    DefaultSettingsPrefix,
		LdapTimeout:       DefaultLdapTimeout,
		LdapProbeSchedule: DefaultLdapProbeSchedule,
		LoginRateLimit:    DefaultLoginRateLimit,
		ListenAddr:        DefaultListenAddr,
		MetricsAddr:       DefaultMetricsAddr,
	}

	envConfig("env", config)

	if err := validator.New().Struct(config); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			fields := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid config fields: %s", strings.Join(fields, ", "))
		}
		return nil, err
	}

	config.SettingsPrefix = strings.ToLower(config.SettingsPrefix)

	return config, nil
}

// CaptchaKey возвращает ключ HMAC для подписи вызовов капчи, по умолчанию SECRET_KEY.
func (c *Config) CaptchaKey() string {
	if c.CaptchaHMACKey != "" {
		return c.CaptchaHMACKey
	}
	return c.SecretKey
}

func (c *Config) LdapTimeoutDuration() time.Duration {
	return time.Duration(c.LdapTimeout) * time.Second
}

// Присваивает полям в переданной структуре значения переменных. Название переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if fEnvTag == "" || !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		lowerName := strings.ToLower(fName)
		if strings.Contains(lowerName, "pass") || strings.Contains(lowerName, "secret") || strings.Contains(lowerName, "key") || strings.Contains(lowerName, "dsn") {
			logValue = maskSecret(logValue)
		}
		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", logValue),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(GetEnv(fEnvTag))
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}

func maskSecret(value string) string {
	runes := []rune(value)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}
