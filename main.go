package main

import (
	"context"
	"errors"
	"flag"
	"gameboard-server/config"
	"gameboard-server/handlers/api/openai"
	presenceapi "gameboard-server/handlers/api/presence"
	"gameboard-server/handlers/api/secrets"
	"gameboard-server/handlers/auth"
	"gameboard-server/handlers/websocket"
	authMiddleware "gameboard-server/middleware"
	"gameboard-server/presence"
	"gameboard-server/stores"
	"gameboard-server/vault"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

const (
	registerBurst   = 5
	shutdownTimeout = 10 * time.Second
)

type app struct {
	cfg      *config.Config
	registry *presence.Registry
	vault    *vault.Vault
	issuer   *auth.Issuer
	lobby    *websocket.Lobby
	store    io.Closer
}

func setupRouter(a *app) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	presenceapi.Routes(r, a.registry, authMiddleware.RateLimit(a.cfg.RegisterRatePerMinute, registerBurst))

	if a.issuer != nil {
		proxy := openai.NewProxy(a.vault, a.cfg.OpenAIBaseURL)
		r.Route("/api", func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT(a.issuer))
			r.Route("/secrets", func(r chi.Router) {
				secrets.Routes(r, a.vault)
			})
			r.Post("/chat/completions", proxy.HandleChatCompletion())
			r.Post("/images/generations", proxy.HandleImageGeneration())
		})
	} else {
		logrus.Warn("ADMIN_JWT_SECRET is not set. Secret and proxy routes are disabled.")
	}

	r.Mount("/socket.io/", a.lobby.Handler())
	return r
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := stores.GetStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	v, err := vault.New(store, cfg.VaultKey, cfg.SecretSlots)
	if err != nil {
		return nil, err
	}

	registry := presence.NewRegistry(store,
		presence.WithBlobName(cfg.PresenceFile),
		presence.WithTTL(cfg.PresenceTTL),
	)
	lobby := websocket.NewLobby(registry, cfg.AllowedOrigins)
	registry.SetNotifier(lobby)

	a := &app{cfg: cfg, registry: registry, vault: v, lobby: lobby}
	if c, ok := store.(io.Closer); ok {
		a.store = c
	}
	if cfg.AdminJWTSecret != "" {
		a.issuer, err = auth.New([]byte(cfg.AdminJWTSecret))
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func waitForShutdown(srv *http.Server, a *app) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signalC
	logrus.WithField("signal", s.String()).Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.lobby.Close()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close storage")
		}
	}
}

func main() {
	listenAddress := flag.String("listen", ":3000", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize")
	}

	srv := &http.Server{
		Addr:              *listenAddress,
		Handler:           setupRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown(srv, a)
}
