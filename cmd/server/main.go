package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

	"github.com/devicelink/delegate-idm/pkg/admin"
	"github.com/devicelink/delegate-idm/pkg/client"
	"github.com/devicelink/delegate-idm/pkg/delegation"
	delegationapi "github.com/devicelink/delegate-idm/pkg/delegation/api"
	"github.com/devicelink/delegate-idm/pkg/device"
	deviceapi "github.com/devicelink/delegate-idm/pkg/device/api"
	"github.com/devicelink/delegate-idm/pkg/googleauth"
	"github.com/devicelink/delegate-idm/pkg/login"
	loginapi "github.com/devicelink/delegate-idm/pkg/login/api"
	"github.com/devicelink/delegate-idm/pkg/mailrelay"
	mailrelayapi "github.com/devicelink/delegate-idm/pkg/mailrelay/api"
	"github.com/devicelink/delegate-idm/pkg/notification"
	"github.com/devicelink/delegate-idm/pkg/session"
	"github.com/devicelink/delegate-idm/pkg/tokengenerator"
	"github.com/devicelink/delegate-idm/pkg/tokenvault"
)

type DbConfig struct {
	Host     string `env:"DELEGATE_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"DELEGATE_PG_PORT" env-default:"5432"`
	Database string `env:"DELEGATE_PG_DATABASE" env-default:"delegate_db"`
	User     string `env:"DELEGATE_PG_USER" env-default:"delegate"`
	Password string `env:"DELEGATE_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"DELEGATE_PG_SCHEMA" env-default:"public"`
}

func (d DbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

type JwtConfig struct {
	Secret     string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer     string `env:"JWT_ISSUER" env-default:"delegate-idm"`
	Audience   string `env:"JWT_AUDIENCE" env-default:"delegate-idm"`
	SessionTTL string `env:"ADMIN_SESSION_TTL" env-default:"5m"`
	GrantTTL   string `env:"DELEGATION_GRANT_TTL" env-default:"2m"`
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL" env-default:"http://localhost:4000/auth/google/callback"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type Config struct {
	DbConfig      DbConfig
	JwtConfig     JwtConfig
	GoogleConfig  GoogleConfig
	EmailConfig   EmailConfig
	BaseURL       string `env:"BASE_URL" env-default:"http://localhost:4000"`
	MailboxAPIURL string `env:"MAILBOX_API_URL" env-default:"https://gmail.googleapis.com/gmail/v1"`
}

func loadEnvFile() {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment variables from .env file")
	}
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		slog.Warn("Invalid duration, using default", "value", value, "default", fallback)
		return fallback
	}
	return d
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	cleanenv.ReadEnv(&config)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)

	pool, err := pgxpool.New(context.Background(), config.DbConfig.toDatabaseURL())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", config.DbConfig.Database, "host", config.DbConfig.Host, "port", config.DbConfig.Port, "user", config.DbConfig.User)
		os.Exit(-1)
	}

	provider := googleauth.NewGoogleProvider(config.GoogleConfig.ClientID, config.GoogleConfig.ClientSecret)
	if err := provider.ValidateConfig(); err != nil {
		slog.Error("Invalid Google OAuth configuration", "error", err)
		os.Exit(-1)
	}
	oauthClient := googleauth.NewClient(provider, config.GoogleConfig.RedirectURL)

	tokens := tokengenerator.NewJwtTokenGenerator(config.JwtConfig.Secret, config.JwtConfig.Issuer, config.JwtConfig.Audience)

	adminRepo := admin.NewPostgresAdminRepository(pool)
	deviceRepo := device.NewPostgresDeviceRepository(pool)
	vaultRepo := tokenvault.NewPostgresVaultRepository(pool)
	sessionRepo := session.NewPostgresSessionRepository(pool)
	grantRepo := delegation.NewPostgresGrantRepository(pool)

	sessionService := session.NewSessionService(sessionRepo, tokens,
		session.WithSessionTTL(parseDuration(config.JwtConfig.SessionTTL, session.DefaultSessionTTL)))
	deviceService := device.NewDeviceService(deviceRepo)
	vaultService := tokenvault.NewVaultService(vaultRepo, oauthClient)
	delegationService := delegation.NewService(grantRepo, sessionService, deviceService, vaultService, tokens,
		delegation.WithGrantTTL(parseDuration(config.JwtConfig.GrantTTL, delegation.DefaultGrantTTL)),
		delegation.WithBaseURL(config.BaseURL))
	relayService := mailrelay.NewService(delegationService, vaultService, config.MailboxAPIURL)

	stateStore := googleauth.NewStateStore(10 * time.Minute)

	notifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
		Host:     config.EmailConfig.Host,
		Port:     config.EmailConfig.Port,
		TLS:      config.EmailConfig.TLS,
		Username: config.EmailConfig.Username,
		Password: config.EmailConfig.Password,
		From:     config.EmailConfig.From,
	})
	if err != nil {
		slog.Error("Failed to create email notifier", "error", err)
		os.Exit(-1)
	}

	notifyManager := notification.NewManager()
	notifyManager.Register(notification.EmailSystem, notifier)

	authService := login.NewAuthService(adminRepo, sessionService, deviceService, vaultService, stateStore, oauthClient,
		login.WithNotifier(notifyManager))

	authHandle := loginapi.NewHandler(authService)
	deviceHandle := deviceapi.NewHandler(deviceService)
	delegationHandle := delegationapi.NewHandler(delegationService, deviceService)
	relayHandle := mailrelayapi.NewHandler(relayService)

	tokenAuth := jwtauth.New("HS256", []byte(config.JwtConfig.Secret), nil)

	server.R.Route("/auth", func(r chi.Router) {
		authHandle.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator(tokenAuth))
			r.Use(client.AdminSessionMiddleware(sessionService))
			deviceHandle.RegisterRoutes(r)
			delegationHandle.RegisterRoutes(r)
		})
	})

	server.R.Route("/api/device/gmail", func(r chi.Router) {
		relayHandle.RegisterRoutes(r)
	})

	slog.Info("Delegate IDM service ready", "base_url", config.BaseURL)
	server.Run()
}
