package config

import (
	"strings"

	"github.com/aisa-it/ldapauth/internal/ldapauth/hooks"
)

// Source отдаёт значение настройки по полному ключу. ok == false означает отсутствие значения,
// пустая строка или "0" при ok == true считаются заданным значением.
type Source interface {
	Lookup(key string) (value string, ok bool)
}

type SourceFunc func(key string) (string, bool)

func (f SourceFunc) Lookup(key string) (string, bool) {
	return f(key)
}

// EnvSource читает настройку из переменной окружения с именем ключа в верхнем регистре.
type EnvSource struct{}

func (EnvSource) Lookup(key string) (string, bool) {
	name := strings.ToUpper(key)
	if !Exist(name) {
		return "", false
	}
	return GetEnv(name), true
}

// Lookup - результат прохода цепочки фильтров настроек.
type Lookup struct {
	Value string
	Found bool
}

// SettingFilter - точка расширения, через которую внешний код может подставить значение настройки.
// Аргумент фильтра - полный ключ настройки.
type SettingFilter = hooks.Filter[Lookup, string]

func NewSettingFilter() *SettingFilter {
	return hooks.NewFilter[Lookup, string]()
}

// HookSource спрашивает значение у зарегистрированных фильтров.
type HookSource struct {
	Filters *SettingFilter
}

func (s HookSource) Lookup(key string) (string, bool) {
	if s.Filters == nil {
		return "", false
	}
	res := s.Filters.Apply(Lookup{}, key)
	return res.Value, res.Found
}

// Resolver разрешает настройку по короткому имени (slug), опрашивая источники по порядку:
// окружение, фильтры, хранилище настроек. Результат не кешируется.
type Resolver struct {
	prefix  string
	sources []Source
}

// NewResolver создаёт Resolver со стандартным порядком источников. filters и store могут быть nil.
func NewResolver(prefix string, filters *SettingFilter, store Source) *Resolver {
	sources := []Source{EnvSource{}, HookSource{Filters: filters}}
	if store != nil {
		sources = append(sources, store)
	}
	return &Resolver{prefix: prefix, sources: sources}
}

// Key возвращает полный ключ настройки.
func (r *Resolver) Key(slug string) string {
	return strings.ToLower(r.prefix + "_" + slug)
}

// Get возвращает значение настройки и false, если ни один источник его не знает.
func (r *Resolver) Get(slug string) (string, bool) {
	key := r.Key(slug)
	for _, source := range r.sources {
		if value, ok := source.Lookup(key); ok {
			return value, true
		}
	}
	return "", false
}

// GetOr возвращает значение настройки или def, если настройка не найдена.
func (r *Resolver) GetOr(slug string, def string) string {
	if value, ok := r.Get(slug); ok {
		return value
	}
	return def
}
