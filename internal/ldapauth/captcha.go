// Проверка altcha капчи при входе и защита от повторного использования решений.
//
// Основные возможности:
//   - Выдача подписанного HMAC вызова altcha (GET /api/captcha/).
//   - Проверка решения из запроса входа.
//   - Хранение принятых подписей до истечения срока вызова, повтор подписи отклоняется и учитывается в метриках.
package ldapauth

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/altcha-org/altcha-lib-go"
	"github.com/labstack/echo/v4"

	"github.com/aisa-it/ldapauth/internal/ldapauth/metrics"
)

const (
	captchaMaxNumber = 10000
	CaptchaExpires   = time.Hour
)

type CaptchaService struct {
	hmacKey string
	metrics *metrics.Metrics

	mu         sync.Mutex
	signatures map[string]time.Time
	now        func() time.Time
}

func NewCaptchaService(hmacKey string, m *metrics.Metrics) *CaptchaService {
	return &CaptchaService{
		hmacKey:    hmacKey,
		metrics:    m,
		signatures: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Validate декодирует base64 решение, проверяет его подпись и срок и запоминает подпись.
// Повторно присланная подпись не принимается.
func (cs *CaptchaService) Validate(payload string) bool {
	if payload == "" {
		return false
	}

	decodedPayload, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		slog.Debug("Decode altcha payload", "err", err)
		return false
	}

	var m altcha.Payload
	if err := json.Unmarshal(decodedPayload, &m); err != nil {
		slog.Debug("Unmarshal altcha payload", "err", err)
		return false
	}

	verified, err := altcha.VerifySolution(m, cs.hmacKey, true)
	if err != nil || !verified {
		return false
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.signatures[m.Signature]; ok {
		slog.Warn("Captcha signature reused")
		if cs.metrics != nil {
			cs.metrics.ObserveCaptchaReplay()
		}
		return false
	}
	cs.signatures[m.Signature] = cs.now().Add(CaptchaExpires)
	return true
}

// Cleanup забывает подписи, чей вызов уже истек: altcha их и так отклонит.
func (cs *CaptchaService) Cleanup() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	for signature, expires := range cs.signatures {
		if now.After(expires) {
			delete(cs.signatures, signature)
		}
	}
}

// requestCaptcha godoc
// @id requestCaptcha
// @Summary Пользователи (управление доступом): запрос капчи для пользователя
// @Description Генерирует и возвращает вызов капчи, решение которого передается в captcha_payload при входе
// @Tags Users
// @Produce json
// @Success 200 {object} altcha.Challenge "Капча успешно создана"
// @Failure 500 {object} apierrors.DefinedError "Внутренняя ошибка сервера"
// @Router /api/captcha/ [get]
func (cs *CaptchaService) requestCaptcha(c echo.Context) error {
	expires := time.Now().Add(CaptchaExpires)
	challenge, err := altcha.CreateChallenge(altcha.ChallengeOptions{
		HMACKey:   cs.hmacKey,
		MaxNumber: captchaMaxNumber,
		Expires:   &expires,
		Params:    url.Values{},
	})
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, challenge)
}
