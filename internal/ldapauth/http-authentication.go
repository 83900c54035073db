// Вход пользователей и проверка токенов доступа.
//
// Основные возможности:
//   - Вход по email и паролю через цепочку фильтров (локальный пароль, затем LDAP).
//   - Проверка altcha капчи перед входом, если она включена.
//   - Выдача JWT токенов доступа и обновления в куках и теле ответа.
//   - Проверка токена доступа (кука или заголовок Bearer) с продлением по токену обновления.
//     Использованный для продления токен обновления отзывается.
//   - Выход с отзывом токенов текущей сессии.
package ldapauth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/aisa-it/ldapauth/internal/ldapauth/apierrors"
	"github.com/aisa-it/ldapauth/internal/ldapauth/business"
	"github.com/aisa-it/ldapauth/internal/ldapauth/dao"
	"github.com/aisa-it/ldapauth/internal/ldapauth/metrics"
)

const outcomeInactiveUser = "inactive_user"

type Authentication struct {
	users    *dao.UserStore
	pipeline *business.LoginPipeline
	secret   []byte
	metrics  *metrics.Metrics
	captcha  *CaptchaService
}

type AuthContext struct {
	echo.Context
	User *dao.User

	// nil when the request carried no valid token of that type
	AccessClaims  *TokenClaims
	RefreshClaims *TokenClaims
}

type AuthConfig struct {
	Secret  []byte
	Users   *dao.UserStore
	Revoked *dao.RevokedTokenStore
}

func (config AuthConfig) isRevoked(claims *TokenClaims) (bool, error) {
	if config.Revoked == nil {
		return false, nil
	}
	return config.Revoked.IsRevoked(claims.ID)
}

func (config AuthConfig) revoke(claims *TokenClaims) error {
	if config.Revoked == nil || claims.ExpiresAt == nil {
		return nil
	}
	return config.Revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
}

// AuthMiddleware пропускает запрос только с действующим токеном доступа.
// Если токен доступа истек или отсутствует, пара токенов перевыпускается по токену обновления из куки,
// а сам токен обновления отзывается. Отозванные токены не принимаются.
func AuthMiddleware(config AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var accessString, refreshString string
			if schema, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " "); ok && strings.EqualFold(schema, "Bearer") {
				accessString = strings.TrimSpace(token)
			} else if cookie, err := c.Cookie("access_token"); err == nil {
				accessString = cookie.Value
			}
			if cookie, err := c.Cookie("refresh_token"); err == nil {
				refreshString = cookie.Value
			}

			var access, refresh *TokenClaims
			if accessString != "" {
				claims, err := ParseToken(config.Secret, accessString, accessTokenType)
				switch {
				case err == nil:
					access = claims
				case !errors.Is(err, jwt.ErrTokenExpired):
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
			}
			if refreshString != "" {
				if claims, err := ParseToken(config.Secret, refreshString, refreshTokenType); err == nil {
					refresh = claims
				}
			}

			if access != nil {
				revoked, err := config.isRevoked(access)
				if err != nil {
					return EError(c, err)
				}
				if revoked {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
			}
			if refresh != nil {
				revoked, err := config.isRevoked(refresh)
				if err != nil {
					return EError(c, err)
				}
				if revoked {
					refresh = nil
				}
			}

			claims := access
			if claims == nil {
				if refresh == nil {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
				claims = refresh
			}

			user, err := config.Users.GetByID(uuid.FromStringOrNil(claims.UserID))
			if err != nil || !user.IsActive {
				return EErrorDefined(c, apierrors.ErrTokenInvalid)
			}

			if access == nil {
				// the presented refresh token is single use
				if err := config.revoke(refresh); err != nil {
					return EError(c, err)
				}
				accessToken, refreshToken, err := createAccessToken(config.Secret, user.ID.String())
				if err != nil {
					return EError(c, err)
				}
				setAuthCookies(c, accessToken, refreshToken)
				access, refresh = accessToken.Claims, refreshToken.Claims
			}

			return next(AuthContext{Context: c, User: user, AccessClaims: access, RefreshClaims: refresh})
		}
	}
}

func AddAuthenticationServices(g *echo.Echo, rc RouterConfig) *Authentication {
	ret := &Authentication{
		users:    rc.Users,
		pipeline: rc.Pipeline,
		secret:   rc.Secret,
		metrics:  rc.Metrics,
		captcha:  rc.Captcha,
	}

	var mw []echo.MiddlewareFunc
	if rc.LoginLimiter != nil {
		mw = append(mw, rc.LoginLimiter.Middleware)
	}
	g.POST("/api/sign-in/", ret.emailLogin, mw...)

	if rc.Captcha != nil {
		g.GET("/api/captcha/", rc.Captcha.requestCaptcha)
	}
	return ret
}

type LoginRequest struct {
	Email          string `json:"email" validate:"omitempty,email,max=254"`
	Password       string `json:"password" validate:"max=1024"`
	CaptchaPayload string `json:"captcha_payload"`
}

// emailLogin godoc
// @id emailLogin
// @Summary Пользователи (управление доступом): вход пользователя
// @Description Проверяет email и пароль локально или в LDAP каталоге, при первом входе пользователя каталога создает локальную учетную запись
// @Tags Users
// @Accept json
// @Produce json
// @Param data body LoginRequest true "Данные для входа пользователя"
// @Success 200 {object} map[string]interface{} "Токены доступа и информация о пользователе"
// @Failure 400 {object} apierrors.ErrorsResponse "Пустые поля или некорректный запрос"
// @Failure 401 {object} apierrors.ErrorsResponse "Неудачный вход в систему или неверная капча"
// @Failure 429 {object} apierrors.ErrorsResponse "Слишком много попыток входа"
// @Failure 503 {object} apierrors.ErrorsResponse "Вход через LDAP не настроен"
// @Router /api/sign-in/ [post]
func (a *Authentication) emailLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrRequestFormat)
	}

	if a.captcha != nil && !a.captcha.Validate(req.CaptchaPayload) {
		return EErrorsDefined(c, []apierrors.DefinedError{apierrors.ErrCaptchaFail})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := c.Validate(&req); err != nil {
		// a malformed email is answered like any other failed login
		a.observe(business.OutcomeInvalidCredentials.String())
		return EErrorsDefined(c, []apierrors.DefinedError{apierrors.ErrInvalidLdapLogin})
	}

	outcome := business.Login(a.pipeline, business.Credentials{Email: req.Email, Password: req.Password})
	if !outcome.IsAuthenticated() {
		a.observe(outcome.Kind.String())
		return EErrorsDefined(c, outcome.Errors())
	}

	user := outcome.User
	if !user.IsActive {
		slog.Info("Login of deactivated user refused", "user", user)
		a.observe(outcomeInactiveUser)
		return EErrorsDefined(c, []apierrors.DefinedError{apierrors.ErrInvalidLdapUser})
	}
	a.observe(outcome.Kind.String())

	if err := a.users.TouchLogin(user); err != nil {
		slog.Warn("Update last login time", "userId", user.ID, "err", err)
	}

	accessToken, refreshToken, err := createAccessToken(a.secret, user.ID.String())
	if err != nil {
		return EError(c, err)
	}

	setAuthCookies(c, accessToken, refreshToken)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"access_token":  accessToken.SignedString,
		"refresh_token": refreshToken.SignedString,
		"user":          user,
	})
}

// getMe godoc
// @id getMe
// @Summary Пользователи: текущий пользователь
// @Tags Users
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} dao.User "Текущий пользователь"
// @Failure 401 {object} apierrors.DefinedError "Токен недействителен"
// @Router /api/auth/me/ [get]
func getMe(c echo.Context) error {
	return c.JSON(http.StatusOK, c.(AuthContext).User)
}

// signOut godoc
// @id signOut
// @Summary Пользователи (управление доступом): выход из текущей сессии
// @Description Отзывает токены текущей сессии и очищает куки
// @Tags Users
// @Security ApiKeyAuth
// @Success 200 "Успешный выход из текущей сессии"
// @Failure 401 {object} apierrors.DefinedError "Токен недействителен"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/auth/sign-out/ [post]
func signOut(config AuthConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		ac := c.(AuthContext)
		for _, claims := range []*TokenClaims{ac.AccessClaims, ac.RefreshClaims} {
			if claims == nil {
				continue
			}
			if err := config.revoke(claims); err != nil {
				return EError(c, err)
			}
		}

		clearAuthCookies(c)
		slog.Info("User signed out", "user", ac.User)
		return c.NoContent(http.StatusOK)
	}
}

func (a *Authentication) observe(outcome string) {
	if a.metrics != nil {
		a.metrics.ObserveLogin(outcome)
	}
}
