package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dtroode/knowledgebase-server/internal/api/grpc/health"
	grpcRouter "github.com/dtroode/knowledgebase-server/internal/api/grpc/router"
	grpcServer "github.com/dtroode/knowledgebase-server/internal/api/grpc/server"
	httpRouter "github.com/dtroode/knowledgebase-server/internal/api/http/router"
	httpServer "github.com/dtroode/knowledgebase-server/internal/api/http/server"
	"github.com/dtroode/knowledgebase-server/internal/audit"
	"github.com/dtroode/knowledgebase-server/internal/config"
	"github.com/dtroode/knowledgebase-server/internal/keysource"
	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
	"github.com/dtroode/knowledgebase-server/internal/password"
	"github.com/dtroode/knowledgebase-server/internal/repository/memory"
	"github.com/dtroode/knowledgebase-server/internal/repository/postgres"
	"github.com/dtroode/knowledgebase-server/internal/server"
	"github.com/dtroode/knowledgebase-server/internal/service"
	storage "github.com/dtroode/knowledgebase-server/internal/storage/minio"
	"github.com/dtroode/knowledgebase-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const healthInterval = 10 * time.Second

type stores struct {
	users       model.UserStore
	refresh     model.RefreshTokenStore
	revocations model.RevocationStore
	pinger      model.Pinger
	close       func() error
}

type eventSink interface {
	model.EventPublisher
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err, "driver", cfg.Database.Driver)
	}
	defer db.close()

	codec, err := newCodec(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize token codec", "error", err, "algorithm", cfg.JWT.Algorithm)
	}
	if !codec.CanSign() {
		logger.Fatal("token codec has no private key", "algorithm", cfg.JWT.Algorithm)
	}

	events := newEventSink(cfg, logger)
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error("failed to close event publisher", "error", err)
		}
	}()

	hasher := password.NewHasher(cfg.Password.BcryptCost, cfg.Password.Workers)
	blacklist := service.NewBlacklist(db.revocations, cfg.JWT.BlacklistEnabled, logger)
	session := service.NewSession(db.users, db.refresh, blacklist, codec, hasher, events, service.SessionConfig{
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
	}, logger)
	resolver := service.NewResolver(codec, blacklist, db.users, logger)
	users := service.NewUsers(db.users, hasher, cfg.Password.MinLength, logger)
	sweeper := service.NewSweeper(db.refresh, blacklist, logger)

	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		if _, _, err := users.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.FullName, cfg.Admin.Password); err != nil {
			logger.Fatal("failed to create bootstrap admin", "error", err, "username", cfg.Admin.Username)
		}
	}

	checker := health.NewChecker(db.pinger, logger)

	// The gRPC port only serves health checks and stays plaintext.
	servers := []struct {
		server model.Server
		layer  model.SecurityLayer
	}{
		{
			server: httpServer.NewHTTPServer(
				httpRouter.New(session, users, resolver, sweeper, db.pinger, logger).Register(),
				cfg.HTTP.Address,
			),
			layer: server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
		},
		{
			server: grpcServer.NewGRPCServer(
				grpcRouter.New(checker.Server(), logger).Register(),
				fmt.Sprintf(":%s", cfg.GRPC.Port),
			),
			layer: server.NewPlainListener(),
		},
	}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s.server, s.layer)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx, cfg.Sweep.Interval)
	}()
	go func() {
		defer wg.Done()
		checker.Run(ctx, healthInterval)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.server.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.server.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		db := memory.New(nil)
		return &stores{
			users:       db.Users(),
			refresh:     db.RefreshTokens(),
			revocations: db.Revocations(),
			pinger:      db,
			close:       func() error { return nil },
		}, nil
	}

	conn, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:       postgres.NewUserRepository(conn, nil),
		refresh:     postgres.NewRefreshTokenRepository(conn, nil),
		revocations: postgres.NewRevocationRepository(conn, nil),
		pinger:      conn,
		close:       conn.Close,
	}, nil
}

// newCodec loads the key pair. Object storage is only contacted when one of
// the references is an s3:// URL.
func newCodec(ctx context.Context, cfg *config.Config) (*token.Codec, error) {
	var objects keysource.ObjectReader
	if keysource.IsObjectRef(cfg.JWT.PrivateKey) || keysource.IsObjectRef(cfg.JWT.PublicKey) {
		client, err := storage.Open(storage.Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		objects = client
	}

	loader := keysource.NewLoader(objects)

	priv, err := loader.Load(ctx, cfg.JWT.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	pub, err := loader.Load(ctx, cfg.JWT.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}

	return token.NewCodec(cfg.JWT.Algorithm, priv, pub)
}

func newEventSink(cfg *config.Config, logger *logger.Logger) eventSink {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("session events disabled, no kafka brokers configured")
		return audit.Noop{}
	}
	return audit.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
}
