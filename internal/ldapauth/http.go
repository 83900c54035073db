// HTTP сервер сервиса аутентификации: маршруты, фоновые задачи и метрики.
package ldapauth

// @title LDAP auth API
// @version 1.0
// @description Directory login bridge: sign-in against LDAP with local account provisioning.
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @BasePath /
import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	echoSwagger "github.com/swaggo/echo-swagger"
	"gorm.io/gorm"

	"github.com/aisa-it/ldapauth/internal/ldapauth/apierrors"
	authprovider "github.com/aisa-it/ldapauth/internal/ldapauth/auth-provider"
	"github.com/aisa-it/ldapauth/internal/ldapauth/business"
	"github.com/aisa-it/ldapauth/internal/ldapauth/config"
	"github.com/aisa-it/ldapauth/internal/ldapauth/cronmanager"
	"github.com/aisa-it/ldapauth/internal/ldapauth/dao"
	_ "github.com/aisa-it/ldapauth/internal/ldapauth/docs"
	"github.com/aisa-it/ldapauth/internal/ldapauth/maintenance"
	"github.com/aisa-it/ldapauth/internal/ldapauth/metrics"
)

//go:generate go run github.com/swaggo/swag/cmd/swag@v1.16.5 init -ot go --generalInfo /http.go --parseInternal --propertyStrategy snakecase --dir ./ --output docs

const (
	captchaCleanJob      = "captcha_signatures_cleanup"
	ldapProbeJob         = "ldap_probe"
	loginLimiterCleanJob = "login_limiter_cleanup"
	revokedPurgeJob      = "revoked_tokens_purge"
)

// Hooks - точки расширения приложения. Внешний код регистрирует в них свои фильтры до запуска Server.
type Hooks struct {
	Settings *config.SettingFilter
	Login    *business.LoginPipeline
}

func NewHooks() *Hooks {
	return &Hooks{
		Settings: config.NewSettingFilter(),
		Login:    business.NewLoginPipeline(),
	}
}

type RouterConfig struct {
	Users      *dao.UserStore
	Revoked    *dao.RevokedTokenStore
	Pipeline   *business.LoginPipeline
	Secret     []byte
	Metrics    *metrics.Metrics
	Registerer prometheus.Registerer
	Version    string

	// nil disables sign-in rate limiting
	LoginLimiter *LoginRateLimiter
	// nil disables captcha on sign-in
	Captcha *CaptchaService
	Swagger bool
}

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "ldapauth")
		return next(c)
	}
}

// NewRouter собирает echo с middleware и всеми маршрутами API.
func NewRouter(rc RouterConfig) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}

		// Ignore 404
		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		er := apierrors.ErrGeneric
		er.StatusCode = code
		EErrorDefined(c, er)
	}

	promMiddleware, err := echoprometheus.MiddlewareConfig{
		Subsystem:  "ldapauth",
		Registerer: rc.Registerer,
	}.ToMiddleware()
	if err != nil {
		return nil, err
	}

	e.Use(ServerHeader)
	e.Use(middleware.BodyLimit("64K"))
	e.Use(promMiddleware)
	e.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return strings.Contains(c.Request().URL.Path, "swagger")
		},
	}))

	e.Validator = NewRequestValidator()

	AddAuthenticationServices(e, rc)

	apiGroup := e.Group("/api")

	// Version endpoint
	apiGroup.GET("/version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"version": rc.Version,
			"captcha": rc.Captcha != nil,
		})
	})

	// Health endpoint
	apiGroup.GET("/_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if rc.Swagger {
		apiGroup.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	authConfig := AuthConfig{
		Secret:  rc.Secret,
		Users:   rc.Users,
		Revoked: rc.Revoked,
	}
	authGroup := apiGroup.Group("/auth", AuthMiddleware(authConfig))
	authGroup.GET("/me/", getMe)
	if rc.Revoked != nil {
		authGroup.POST("/sign-out/", signOut(authConfig))
	}

	return e, nil
}

// Server собирает зависимости и блокируется до остановки сервера по сигналу.
func Server(db *gorm.DB, cfg *config.Config, version string, hooks *Hooks) {
	users := dao.NewUserStore(db)
	revoked := dao.NewRevokedTokenStore(db)
	resolver := config.NewResolver(cfg.SettingsPrefix, hooks.Settings, dao.NewSettingStore(db))
	dialer := authprovider.NetDialer{Timeout: cfg.LdapTimeoutDuration()}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("Register metrics", "err", err)
		os.Exit(1)
	}

	business.NewLocalAuthenticator(users).Register(hooks.Login)
	business.NewLdapAuthenticator(resolver, users, business.LdapConnectionFactory(authprovider.WithTimeout(cfg.LdapTimeoutDuration()))).Register(hooks.Login)

	jobRegistry := cronmanager.JobRegistry{
		revokedPurgeJob: {
			Func: func() {
				n, err := revoked.Purge(time.Now())
				if err != nil {
					slog.Error("Purge revoked tokens", "err", err)
					return
				}
				slog.Debug("Revoked tokens purged", "count", n)
			},
			Schedule: "@hourly",
		},
	}
	if !cfg.LdapProbeDisabled {
		jobRegistry[ldapProbeJob] = cronmanager.Job{
			Func:     maintenance.NewLdapProber(resolver, dialer, m).ProbeJob,
			Schedule: cfg.LdapProbeSchedule,
		}
	}

	var loginLimiter *LoginRateLimiter
	if cfg.LoginRateLimit > 0 {
		loginLimiter = NewLoginRateLimiter(cfg.LoginRateLimit, loginRateWindow)
		jobRegistry[loginLimiterCleanJob] = cronmanager.Job{
			Func:     loginLimiter.Cleanup,
			Schedule: "@every 1m",
		}
	}

	var captcha *CaptchaService
	if !cfg.CaptchaDisabled {
		captcha = NewCaptchaService(cfg.CaptchaKey(), m)
		jobRegistry[captchaCleanJob] = cronmanager.Job{
			Func:     captcha.Cleanup,
			Schedule: "@every 10m",
		}
	}

	cronManager := cronmanager.NewCronManager(jobRegistry)
	if err := cronManager.LoadJobs(); err != nil {
		slog.Error("Failed to load cron jobs", "err", err)
		os.Exit(1)
	}
	cronManager.Start()

	if !cfg.LdapProbeDisabled {
		go cronManager.RunNow(ldapProbeJob)
	}

	e, err := NewRouter(RouterConfig{
		Users:      users,
		Revoked:    revoked,
		Pipeline:   hooks.Login,
		Secret:     []byte(cfg.SecretKey),
		Metrics:    m,
		Registerer: prometheus.DefaultRegisterer,
		Version:    version,

		LoginLimiter: loginLimiter,
		Captcha:      captcha,
		Swagger:      cfg.SwaggerEnable,
	})
	if err != nil {
		slog.Error("Init router", "err", err)
		os.Exit(1)
	}

	metricsServer := echo.New()
	metricsServer.HideBanner = true
	metricsServer.HidePort = true
	metricsServer.GET("/metrics", echoprometheus.NewHandler())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		stop()
		cronManager.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server shutdown", "err", err)
		}
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown", "err", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metricsServer.Start(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server fail", "err", err)
			}
		}()
	}

	slog.Info("Start server", "addr", cfg.ListenAddr, "version", version)
	if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server fail", "err", err)
		os.Exit(1)
	}
	<-done
}
