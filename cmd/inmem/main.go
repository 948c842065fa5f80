// Package main runs the delegation service without a database using in-memory
// repositories. All data is lost when the server stops; for production use
// cmd/server with PostgreSQL.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
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

const (
	jwtSecret = "inmem-dev-secret-change-in-production"
	baseURL   = "http://localhost:4000"
	issuer    = "delegate-idm"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting in-memory delegation service (no database required)")

	adminRepo := admin.NewInMemAdminRepository()
	deviceRepo := device.NewInMemDeviceRepository()
	vaultRepo := tokenvault.NewInMemVaultRepository()
	sessionRepo := session.NewInMemSessionRepository()
	grantRepo := delegation.NewInMemGrantRepository()

	provider := googleauth.NewGoogleProvider(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
	oauthClient := googleauth.NewClient(provider, baseURL+"/auth/google/callback")

	tokens := tokengenerator.NewJwtTokenGenerator(jwtSecret, issuer, issuer)

	sessionService := session.NewSessionService(sessionRepo, tokens)
	deviceService := device.NewDeviceService(deviceRepo)
	vaultService := tokenvault.NewVaultService(vaultRepo, oauthClient)
	delegationService := delegation.NewService(grantRepo, sessionService, deviceService, vaultService, tokens,
		delegation.WithBaseURL(baseURL))
	relayService := mailrelay.NewService(delegationService, vaultService, "https://gmail.googleapis.com/gmail/v1")

	notifier := notification.NewMockNotifier()
	stateStore := googleauth.NewStateStore(10 * time.Minute)

	authService := login.NewAuthService(adminRepo, sessionService, deviceService, vaultService, stateStore, oauthClient,
		login.WithNotifier(notifier))

	seedInitialData(adminRepo, deviceService, vaultService)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)

	authHandle := loginapi.NewHandler(authService)
	deviceHandle := deviceapi.NewHandler(deviceService)
	delegationHandle := delegationapi.NewHandler(delegationService, deviceService)
	relayHandle := mailrelayapi.NewHandler(relayService)

	tokenAuth := jwtauth.New("HS256", []byte(jwtSecret), nil)

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

	slog.Info("In-memory delegation service ready", "base_url", baseURL)
	slog.Info("Test credentials: admin@example.com / password123")
	server.Run()
}

// seedInitialData creates a demo admin with one linked device so delegation
// can be exercised without completing a real OAuth flow.
func seedInitialData(adminRepo *admin.InMemAdminRepository, devices *device.DeviceService, vault *tokenvault.VaultService) {
	ctx := context.Background()

	hash, err := login.HashPassword("password123")
	if err != nil {
		slog.Error("Failed to hash seed password", "error", err)
		os.Exit(-1)
	}

	seedAdmin, err := adminRepo.CreateAdmin(ctx, admin.AdminAccount{
		Name:         "Demo Admin",
		Email:        "admin@example.com",
		PasswordHash: hash,
	})
	if err != nil {
		slog.Error("Failed to seed admin", "error", err)
		os.Exit(-1)
	}

	seedDevice, err := devices.UpsertBinding(ctx, device.DeviceIdentity{
		DeviceKey:   "demo-device-1",
		Email:       "device@example.com",
		AdminID:     seedAdmin.ID,
		DisplayName: "Demo Device",
	})
	if err != nil {
		slog.Error("Failed to seed device", "error", err)
		os.Exit(-1)
	}

	err = vault.Store(ctx, seedDevice.ID, tokenvault.TokenMaterial{
		AccessToken:  "demo-access-token",
		RefreshToken: "demo-refresh-token",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		slog.Error("Failed to seed device token", "error", err)
		os.Exit(-1)
	}

	slog.Info("Seeded demo data", "admin_id", seedAdmin.ID, "device_id", seedDevice.ID)
}
