package ldapauth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time { return c.t }

func newTestLimiter(max int) (*LoginRateLimiter, *manualClock) {
	clock := &manualClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLoginRateLimiter(max, time.Minute)
	rl.now = clock.now
	return rl, clock
}

func TestLoginRateLimiter(t *testing.T) {
	t.Run("window", func(t *testing.T) {
		rl, clock := newTestLimiter(3)
		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow("10.0.0.1"), "attempt %d", i+1)
			clock.t = clock.t.Add(time.Second)
		}
		assert.False(t, rl.Allow("10.0.0.1"))

		clock.t = clock.t.Add(time.Minute)
		assert.True(t, rl.Allow("10.0.0.1"))
	})

	t.Run("addresses are independent", func(t *testing.T) {
		rl, _ := newTestLimiter(1)
		assert.True(t, rl.Allow("10.0.0.1"))
		assert.False(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.2"))
	})

	t.Run("reset", func(t *testing.T) {
		rl, _ := newTestLimiter(1)
		assert.True(t, rl.Allow("10.0.0.1"))
		rl.Reset("10.0.0.1")
		assert.True(t, rl.Allow("10.0.0.1"))
	})

	t.Run("zero limit blocks everything", func(t *testing.T) {
		rl, _ := newTestLimiter(0)
		assert.False(t, rl.Allow("10.0.0.1"))
	})

	t.Run("cleanup", func(t *testing.T) {
		rl, clock := newTestLimiter(5)
		rl.Allow("10.0.0.1")
		clock.t = clock.t.Add(30 * time.Second)
		rl.Allow("10.0.0.2")
		require.Equal(t, 2, rl.tracked())

		clock.t = clock.t.Add(45 * time.Second)
		rl.Cleanup()
		assert.Equal(t, 1, rl.tracked())
	})
}

func TestSignInRateLimit(t *testing.T) {
	env := setupTestEnv(t)
	limiter, _ := newTestLimiter(2)
	e, err := NewRouter(RouterConfig{
		Users:        env.users,
		Pipeline:     env.pipeline,
		Secret:       testSecret,
		Version:      "test",
		Registerer:   prometheus.NewRegistry(),
		LoginLimiter: limiter,
	})
	require.NoError(t, err)

	signIn := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/sign-in/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, signIn(`{"email":"ada@example.com","password":"wrong"}`).Code)
	// a successful login clears the counter
	assert.Equal(t, http.StatusOK, signIn(`{"email":"ada@example.com","password":"correct"}`).Code)

	assert.Equal(t, http.StatusUnauthorized, signIn(`{"email":"ada@example.com","password":"wrong"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, signIn(`{"email":"ada@example.com","password":"wrong"}`).Code)

	rec := signIn(`{"email":"ada@example.com","password":"correct"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"too_many_login_attempts"}, decodeErrors(t, rec))
}
