// Реестр фильтров, через который внешний код встраивается в работу приложения.
//
// Основные возможности:
//   - Регистрация фильтров с приоритетом (меньшее значение выполняется раньше).
//   - Последовательное применение цепочки фильтров к значению.
//   - Потокобезопасная регистрация во время работы приложения.
package hooks

import (
	"slices"
	"sync"
)

const DefaultPriority = 10

// FilterFunc получает текущее значение и аргументы вызова и возвращает новое значение.
type FilterFunc[V any, A any] func(value V, args A) V

type entry[V any, A any] struct {
	name     string
	priority int
	seq      int
	fn       FilterFunc[V, A]
}

type Filter[V any, A any] struct {
	mu      sync.RWMutex
	entries []entry[V, A]
	seq     int
}

func NewFilter[V any, A any]() *Filter[V, A] {
	return &Filter[V, A]{}
}

// Add регистрирует фильтр. Фильтры с одинаковым приоритетом выполняются в порядке регистрации.
func (f *Filter[V, A]) Add(name string, priority int, fn FilterFunc[V, A]) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	f.entries = append(f.entries, entry[V, A]{name: name, priority: priority, seq: f.seq, fn: fn})
	slices.SortStableFunc(f.entries, func(a, b entry[V, A]) int {
		if a.priority != b.priority {
			return a.priority - b.priority
		}
		return a.seq - b.seq
	})
}

// Remove удаляет все фильтры с указанным именем. Возвращает true, если что-то было удалено.
func (f *Filter[V, A]) Remove(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	before := len(f.entries)
	f.entries = slices.DeleteFunc(f.entries, func(e entry[V, A]) bool {
		return e.name == name
	})
	return len(f.entries) != before
}

func (f *Filter[V, A]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Apply прогоняет значение через все зарегистрированные фильтры.
func (f *Filter[V, A]) Apply(value V, args A) V {
	// Snapshot so filters may register other filters
	f.mu.RLock()
	entries := slices.Clone(f.entries)
	f.mu.RUnlock()

	for _, e := range entries {
		value = e.fn(value, args)
	}
	return value
}
