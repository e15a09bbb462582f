package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartplate/internal/db"
	"smartplate/internal/location"
	"smartplate/internal/realtime"
	"smartplate/internal/requests"
	"smartplate/internal/server"
	"smartplate/internal/session"
	"smartplate/internal/storage"
	"smartplate/internal/store"
	"smartplate/internal/verification"
	"smartplate/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Apply the database schema before serving",
			Value: true,
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger := newLogger(config)

	awsConfig, err := storage.LoadAWSConfig(ctx, config)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cCtx.Bool("migrate") {
		if err := db.Migrate(ctx, pool, config.DatabaseSchema, config.RealtimeChannel); err != nil {
			return err
		}
	}

	userRepo := store.NewUserRepository(pool)
	ngoRepo := store.NewNGODetailsRepository(pool)
	volunteerRepo := store.NewVolunteerDetailsRepository(pool)
	documentRepo := store.NewDocumentRepository(pool)
	requestRepo := store.NewFoodRequestRepository(pool)
	photoRepo := store.NewFoodRequestPhotoRepository(pool)

	blobs := storage.NewS3BlobStore(awsConfig, config)

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)
	identity := session.NewCognitoIdentity(cognitoClient, config.CognitoClientID, config.CognitoUserPoolID)

	sessions := session.NewManager(identity, userRepo, logger, time.Duration(config.RoleFetchDelayMS)*time.Millisecond)
	sessions.Start(ctx)
	defer sessions.Close()

	verifier, err := server.NewJWKSVerifier(ctx, config.CognitoIssuerURL)
	if err != nil {
		return err
	}

	verificationService := verification.New(ngoRepo, volunteerRepo, documentRepo, blobs, config.S3DocumentsBucket, config.MaxUploadBytes, logger)
	requestsService := requests.New(requestRepo, photoRepo, verificationService, blobs, config.S3PhotosBucket, config.MaxUploadBytes, logger)

	fixes, closeFixes, err := newFixStore(ctx, config)
	if err != nil {
		return err
	}
	defer closeFixes()

	locations := location.NewRegistry(location.NewStoredLocator(fixes), locationOptions(config))

	hub := realtime.NewHub(logger)
	defer hub.Close()

	listener := realtime.NewListener(pool, hub, config.RealtimeChannel, logger)
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("realtime listener stopped")
		}
	}()

	srv, err := server.New(
		config,
		logger,
		sessions,
		verifier,
		verificationService,
		requestsService,
		locations,
		fixes,
		hub,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

// newFixStore keeps device fixes in redis when REDIS_URL is set so every
// replica sees them, and in memory otherwise.
func newFixStore(ctx context.Context, config *types.Config) (location.FixStore, func(), error) {
	if config.RedisURL == "" {
		logrus.Warn("REDIS_URL not set, keeping location fixes in memory")
		return location.NewMemoryFixStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return location.NewRedisFixStore(client), func() { _ = client.Close() }, nil
}
