package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"propstake/api/handler"
	apiMiddleware "propstake/api/middleware"
	"propstake/api/routes"
	"propstake/config"
	"propstake/internal/repository"
	"propstake/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	db := config.ConnectionDb()
	validate := validator.New()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	accessSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(accessSecret) == 0 {
		logger.Fatal("JWT_SECRET is required")
	}
	refreshSecret := []byte(os.Getenv("JWT_REFRESH_SECRET"))
	if len(refreshSecret) == 0 {
		logger.Fatal("JWT_REFRESH_SECRET is required")
	}

	clock := service.RealClock{}
	tokens := &service.TokenManager{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		Issuer:        os.Getenv("JWT_ISSUER"),
		AccessTTL:     service.DefaultAccessTokenTTL,
		RefreshTTL:    service.DefaultRefreshTokenTTL,
		Clock:         clock,
	}

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	otpRepo := repository.NewOneTimeCodeRepository(db)
	resetRepo := repository.NewPasswordResetTokenRepository(db)
	twoFactorRepo := repository.NewTwoFactorRepository(db)
	securityRepo := repository.NewSecurityLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	referralRepo := repository.NewReferralRepository(db)

	authConfig := service.AuthConfig{
		ResetTokenTTL: time.Hour,
		TOTPIssuer:    envOr("TOTP_ISSUER", "PropStake"),
		AppBaseURL:    envOr("APP_BASE_URL", "http://localhost:3000"),
		ReferrerBonus: 2500,
		ReferredBonus: 1000,
	}

	var emailSender service.EmailSender
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		emailSender = service.NewResendEmailSender(apiKey, envOr("EMAIL_FROM", "PropStake <no-reply@propstake.app>"))
	} else {
		logger.Warn("RESEND_API_KEY not set, emails disabled")
	}

	var google service.GoogleVerifier
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		google = service.NewGoogleTokenVerifier(clientID)
	}

	otpService := service.NewOtpService(otpRepo, clock)
	twoFactorService := service.NewTwoFactorService(twoFactorRepo, clock, authConfig.TOTPIssuer, logger)
	sessionManager := service.NewSessionManager(
		sessionRepo, userRepo, securityRepo, tokens,
		service.NewIPAPIResolver(logger), clock, logger,
	)
	linker := service.NewIdentityLinker(userRepo, accountRepo, referralRepo, clock, authConfig, logger)
	notifySink := service.NewRepoNotificationSink(notificationRepo)

	authService := service.NewAuthService(
		userRepo,
		accountRepo,
		resetRepo,
		otpService,
		twoFactorService,
		sessionManager,
		linker,
		google,
		securityRepo,
		emailSender,
		notifySink,
		service.BcryptPasswordHasher{},
		referralRepo,
		clock,
		authConfig,
		logger,
	)

	cookies := handler.CookieConfig{
		Domain: os.Getenv("COOKIE_DOMAIN"),
		Secure: os.Getenv("COOKIE_SECURE") != "false",
	}
	authHandler := &handler.AuthHandler{Service: authService, Validate: validate, Cookies: cookies, Log: logger}
	twoFactorHandler := &handler.TwoFactorHandler{Service: twoFactorService, Validate: validate, Log: logger}
	accountHandler := &handler.AccountHandler{Service: authService, Cookies: cookies, Log: logger}

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	go sweepExpiredSessions(sessionManager, logger)

	authMiddleware := apiMiddleware.AuthMiddleware{Tokens: tokens, Users: userRepo}
	router := routes.NewRouter(app, authHandler, twoFactorHandler, accountHandler, authMiddleware)
	router.RegisterRoutes()

	addr := envOr("HTTP_ADDR", ":8080")
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("addr", addr).Info("server started")
	if err := app.StartServer(server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

// sweepExpiredSessions deletes long-expired session rows once at startup and
// then hourly, so revoked and stale sessions do not accumulate forever.
func sweepExpiredSessions(sessions *service.SessionManager, logger *logrus.Logger) {
	sweep := func() {
		if err := sessions.CleanupExpired(context.Background()); err != nil {
			logger.WithError(err).Warn("expired session cleanup failed")
		}
	}
	sweep()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		sweep()
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
