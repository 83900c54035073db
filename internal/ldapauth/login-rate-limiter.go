// Ограничение частоты попыток входа по IP адресу для защиты каталога от подбора паролей.
package ldapauth

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aisa-it/ldapauth/internal/ldapauth/apierrors"
)

const loginRateWindow = time.Minute

// LoginRateLimiter считает попытки входа с каждого IP в скользящем окне.
// Успешный вход сбрасывает счётчик адреса.
type LoginRateLimiter struct {
	mu          sync.Mutex
	attempts    map[string][]time.Time
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func NewLoginRateLimiter(maxAttempts int, window time.Duration) *LoginRateLimiter {
	return &LoginRateLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Allow записывает попытку и возвращает false, если лимит для ip уже исчерпан.
func (rl *LoginRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := pruneBefore(rl.attempts[ip], now.Add(-rl.window))
	if len(recent) >= rl.maxAttempts {
		rl.attempts[ip] = recent
		return false
	}
	rl.attempts[ip] = append(recent, now)
	return true
}

func (rl *LoginRateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, ip)
}

// Cleanup удаляет адреса без попыток в текущем окне. Запускается по расписанию.
func (rl *LoginRateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for ip, attempts := range rl.attempts {
		recent := pruneBefore(attempts, cutoff)
		if len(recent) == 0 {
			delete(rl.attempts, ip)
			continue
		}
		rl.attempts[ip] = recent
	}
}

func (rl *LoginRateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.attempts)
}

// Middleware отклоняет запрос с too_many_login_attempts, если лимит адреса исчерпан.
func (rl *LoginRateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP()
		if !rl.Allow(ip) {
			slog.Warn("Login rate limit exceeded", "ip", ip)
			return EErrorsDefined(c, []apierrors.DefinedError{apierrors.ErrTooManyLoginAttempts})
		}
		err := next(c)
		if err == nil && c.Response().Status == http.StatusOK {
			rl.Reset(ip)
		}
		return err
	}
}

// attempts are appended in time order
func pruneBefore(attempts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(attempts) && !attempts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return attempts
	}
	return append([]time.Time(nil), attempts[i:]...)
}
