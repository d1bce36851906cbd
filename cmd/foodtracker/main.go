package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/coreos/go-oidc/v3/oidc"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	adapthttp "foodtracker/internal/adapter/http"
	"foodtracker/internal/adapter/imagestore"
	"foodtracker/internal/adapter/memory"
	"foodtracker/internal/adapter/openfoodfacts"
	"foodtracker/internal/adapter/postgres"
	"foodtracker/internal/adapter/sqlite"
	"foodtracker/internal/app"
	"foodtracker/internal/config"
	"foodtracker/internal/domain"
	"foodtracker/internal/logger"
	"foodtracker/internal/metrics"
)

// store is what every catalog backend provides.
type store interface {
	domain.ProductRepository
	domain.UserRepository
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog, lerr := logger.NewForEnvironment(os.Getenv("FOODTRACKER_APP_ENV"))
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		bootLog.Error("load config", zap.Error(err))
		_ = bootLog.Sync()
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	code := run(cfg, log)
	_ = log.Sync()
	os.Exit(code)
}

func run(cfg *config.Config, log *zap.Logger) int {
	ctx := context.Background()

	db, sessions, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		return 1
	}

	images, err := openImageStore(ctx, cfg, log)
	if err != nil {
		log.Error("open image store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
		_ = db.Close()
		return 1
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	foods := openfoodfacts.New(openfoodfacts.Config{
		BaseURL:           cfg.FoodDatabase.BaseURL,
		Country:           cfg.FoodDatabase.Country,
		UserAgent:         cfg.FoodDatabase.UserAgent,
		Timeout:           cfg.FoodDatabase.Timeout,
		RequestsPerMinute: cfg.FoodDatabase.RequestsPerMinute,
	}, openfoodfacts.WithLogger(log), openfoodfacts.WithMetrics(m))

	catalogSvc := app.NewCatalogService(db, images, log, m)
	searchSvc := app.NewSearchService(db, foods, cfg.FoodDatabase.PageSize, log, m)
	totalsSvc := app.NewTotalsService(db)
	authSvc := app.NewAuthService(db, sessions, cfg.Auth.SessionTTL)

	if cfg.Auth.InitialUsername != "" {
		err := authSvc.CreateInitialUser(ctx, cfg.Auth.InitialUsername, cfg.Auth.InitialPassword)
		switch {
		case err == nil:
			log.Info("initial user created", zap.String("username", cfg.Auth.InitialUsername))
		case !errors.Is(err, app.ErrUsersExist):
			log.Error("create initial user", zap.Error(err))
			_ = db.Close()
			return 1
		}
	}

	oidcCfg, err := setupOIDC(ctx, cfg.Auth.OIDC)
	if err != nil {
		log.Error("oidc setup", zap.String("issuer", cfg.Auth.OIDC.Issuer), zap.Error(err))
		_ = db.Close()
		return 1
	}

	srv := adapthttp.New(catalogSvc, searchSvc, totalsSvc, authSvc, cfg.HTTP.StaticDir,
		adapthttp.WithLogger(log),
		adapthttp.WithMetrics(m, cfg.Metrics.Path),
		adapthttp.WithOIDC(oidcCfg),
		adapthttp.WithHealthCheck(db.Ping),
		adapthttp.WithSessionTTL(cfg.Auth.SessionTTL),
		adapthttp.WithSecureCookies(cfg.HTTP.SecureCookies),
		adapthttp.WithMaxUploadBytes(cfg.HTTP.MaxUploadBytes),
	)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Named("http")),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("store", cfg.Database.Driver),
			zap.String("images", cfg.Storage.Driver),
			zap.Bool("sso", oidcCfg.Enabled),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.HTTP.ShutdownTimeout, map[string]gfshutdown.Operation{
		// Drain requests before closing the store they use.
		"http": func(ctx context.Context) error {
			log.Info("shutting down")
			err := httpServer.Shutdown(ctx)
			if cerr := db.Close(); cerr != nil && err == nil {
				err = cerr
			}
			return err
		},
	})

	select {
	case err := <-serveErr:
		log.Error("http server", zap.Error(err))
		_ = db.Close()
		return 1
	case code := <-wait:
		return code
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store, domain.SessionRepository, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.URL, postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return db, postgres.NewSessionRepo(db), nil
	case "sqlite":
		gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Database.LogLevel))
		db, err := sqlite.Open(cfg.Database.Path, gormLog)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlite.NewSessionRepo(db), nil
	case "memory":
		db := memory.New()
		return db, db.NewSessionRepo(), nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openImageStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.ImageStore, error) {
	switch cfg.Storage.Driver {
	case "s3":
		s3cfg := cfg.Storage.S3
		s3Store, err := imagestore.NewS3Store(ctx, imagestore.S3Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			Prefix:          s3cfg.Prefix,
			PublicBaseURL:   s3cfg.PublicBaseURL,
			UsePathStyle:    s3cfg.UsePathStyle,
		}, imagestore.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	default:
		prefix, err := cfg.UploadURLPrefix()
		if err != nil {
			return nil, err
		}
		disk, err := imagestore.NewDiskStore(cfg.Storage.UploadDir, prefix)
		if err != nil {
			return nil, err
		}
		return disk, nil
	}
}

func setupOIDC(ctx context.Context, cfg config.OIDCConfig) (adapthttp.OIDCConfig, error) {
	if !cfg.Enabled() {
		return adapthttp.OIDCConfig{}, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return adapthttp.OIDCConfig{}, err
	}
	return adapthttp.OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}
