package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/accelerated-industries/warden/internal/auth"
	"github.com/accelerated-industries/warden/internal/board"
	"github.com/accelerated-industries/warden/internal/catalog"
	"github.com/accelerated-industries/warden/internal/config"
	"github.com/accelerated-industries/warden/internal/logging"
	"github.com/accelerated-industries/warden/internal/server"
)

var (
	version = "0.1.0-dev"
)

const janitorInterval = 5 * time.Minute

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "HTTP server port (overrides server.listen_address)")
	configFile := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		log.Printf("warden v%s", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		host, _, err := net.SplitHostPort(cfg.Server.ListenAddress)
		if err != nil {
			host = cfg.Server.ListenAddress
		}
		cfg.Server.ListenAddress = net.JoinHostPort(host, strconv.Itoa(*port))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, closer, err := logging.Open(cfg.Logging.Format, cfg.Logging.Level, cfg.Logging.Output, cfg.Logging.File)
	if err != nil {
		log.Fatalf("Failed to open log output: %v", err)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Error("main", "exit", map[string]interface{}{
			"error": err.Error(),
		})
	}
	closer.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("main", "starting", map[string]interface{}{
		"version": version,
	})

	secret := cfg.Session.Secret
	if secret == nil {
		generated, err := auth.GenerateSecret()
		if err != nil {
			return err
		}
		secret = generated
		logger.Warn("main", "ephemeral_secret", map[string]interface{}{
			"reason": "no " + config.SecretEnvVar + " or session.secret_file; sessions will not survive a restart",
		})
	}

	credentials, err := auth.NewCredentialStoreFromConfig(cfg.Users, bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	login := cfg.RateLimiting.Login
	limiter := auth.NewRateLimiter(login.MaxAttempts, login.Window, login.MaxKeys)

	tokens, err := auth.NewTokenManager(secret, nil)
	if err != nil {
		return err
	}
	sessions := auth.NewSessionManager(tokens, auth.NewSessionStore(), cfg.Session.CookieName, cfg.Session.TTLParsed)

	clientKeys, err := auth.NewClientKeyResolver(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	products, err := catalog.Open(ctx)
	if err != nil {
		return err
	}
	defer products.Close()

	srv, err := server.NewServer(cfg.Server, server.Deps{
		Auth:       auth.NewAuthManager(credentials, limiter, sessions, clientKeys, logger),
		Sessions:   sessions,
		ClientKeys: clientKeys,
		Catalog:    products,
		Board:      board.New(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	go janitor(ctx, sessions, logger)

	return srv.Start(ctx)
}

// janitor drops expired sessions until ctx is done
func janitor(ctx context.Context, sessions *auth.SessionManager, logger *logging.Logger) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.CleanupExpired(); n > 0 {
				logger.Debug("main", "sessions_expired", map[string]interface{}{
					"removed": n,
				})
			}
		}
	}
}
