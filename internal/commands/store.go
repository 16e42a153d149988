package commands

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"expense-api/internal/auth"
	"expense-api/internal/config"
	"expense-api/internal/repository"
	"expense-api/internal/repository/mongodb"
	"expense-api/internal/repository/sqlite"
	"expense-api/internal/storage"
)

// stores bundles the repositories of the configured backend.
type stores struct {
	expenses repository.ExpenseRepository
	users    repository.UserRepository
	close    func(context.Context) error
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	var s stores
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.Database.URI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Database.Name)
		s = stores{
			expenses: mongodb.NewExpenseRepository(db),
			users:    mongodb.NewUserRepository(db),
			close:    client.Disconnect,
		}
	default:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s = stores{
			expenses: sqlite.NewExpenseRepository(db),
			users:    sqlite.NewUserRepository(db),
			close:    func(context.Context) error { return db.Close() },
		}
	}

	if err := s.expenses.Init(ctx); err != nil {
		_ = s.close(ctx)
		return nil, fmt.Errorf("init expense repository: %w", err)
	}
	if err := s.users.Init(ctx); err != nil {
		_ = s.close(ctx)
		return nil, fmt.Errorf("init user repository: %w", err)
	}
	return &s, nil
}

// buildRevoker shares revocations through redis when an address is
// configured and keeps them in memory otherwise.
func buildRevoker(ctx context.Context, cfg config.Config, logger *logrus.Logger) (auth.Revoker, func() error, error) {
	if cfg.Redis.Addr == "" {
		return auth.NewMemoryRevoker(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Infof("using redis token revocation at %s", cfg.Redis.Addr)
	return auth.NewRedisRevoker(client), client.Close, nil
}

// buildArchiver returns nil when no bucket is configured.
func buildArchiver(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Archiver, error) {
	if cfg.Storage.Bucket == "" {
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving uploads to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Archiver(client, cfg.Storage.Bucket), nil
}
