package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shop-service/internal/api"
	"shop-service/internal/cache"
	"shop-service/internal/config"
	"shop-service/internal/consumer"
	"shop-service/internal/events"
	"shop-service/internal/logging"
	"shop-service/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "shop-service",
		Short:         "Users, products and files REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().Int("port", 5000, "HTTP port")
	root.PersistentFlags().String("backend_id", "unknown", "identifier reported by /api/ping")
	root.PersistentFlags().String("log_level", "info", "log level")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, cfgFile)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create MySQL tables or MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd, cfgFile)
		},
	})

	return root
}

// setup loads and validates the configuration and installs the logger.
func setup(cmd *cobra.Command, cfgFile string) (*config.Config, func(), error) {
	cfg, err := config.Load(cmd.Flags(), cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	closer, err := logging.Setup(logging.Options{
		Dir:        cfg.LogDir,
		Level:      cfg.LogLevel,
		Production: cfg.IsProduction(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	done := func() { closer.Close() }

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		done()
		return nil, nil, err
	}
	return cfg, done, nil
}

func migrate(cmd *cobra.Command, cfgFile string) error {
	cfg, done, err := setup(cmd, cfgFile)
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to the database")
		return err
	}
	defer st.close(context.Background())

	if err := st.migrate(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to migrate")
		return err
	}
	log.Info().Msgf("Migrated %s store", cfg.StoreDriver)
	return nil
}

func serve(cmd *cobra.Command, cfgFile string) error {
	cfg, done, err := setup(cmd, cfgFile)
	if err != nil {
		return err
	}
	defer done()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to the database")
		return err
	}
	defer st.close(context.Background())

	if err := st.migrate(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to migrate")
		return err
	}

	productCache, closeCache := newCache(ctx, cfg)
	defer closeCache()

	fileStore, err := newFileStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create file store")
		return err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaEnabled() {
		writer := cfg.NewKafkaWriter()
		defer writer.Close()
		publisher = events.NewKafkaPublisher(writer, cfg.BackendID)
	}

	userService := service.NewUserService(st.users, []byte(cfg.JWTSecret), cfg.TokenTTL)
	productService := service.NewProductService(st.products, productCache, publisher)
	fileService := service.NewFileService(fileStore)

	if err := productService.WarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("Error pre-warming products cache")
	}

	e := api.NewRouter(cfg, api.Services{
		Users:    userService,
		Products: productService,
		Files:    fileService,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + strconv.Itoa(cfg.Port)
		log.Info().Msgf("Server running in %s mode on port %d", cfg.AppEnv, cfg.Port)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down server")
		return e.Shutdown(shutdownCtx)
	})

	if cfg.KafkaEnabled() {
		c := consumer.NewConsumer(cfg.NewKafkaReader(), productService, cfg.BackendID)
		g.Go(func() error {
			if err := c.Run(gctx); err != nil {
				// the API keeps serving; other backends' writes show up after the cache TTL
				log.Error().Err(err).Msg("Product event consumer stopped")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server error")
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

// newCache returns the product cache selected by cache_driver.
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, func()) {
	if cfg.CacheDriver != config.CacheRedis {
		return cache.NewMemory(cfg.CacheSize, cfg.CacheTTL), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msgf("Redis at %s is not reachable yet", cfg.RedisAddr)
	}
	return cache.NewRedis(rdb, cfg.CacheTTL), func() { rdb.Close() }
}

// newFileStore reads from S3 when files_bucket is set, else from files_dir.
func newFileStore(ctx context.Context, cfg *config.Config) (service.FileStore, error) {
	if cfg.FilesBucket == "" {
		return service.NewDirStore(cfg.FilesDir), nil
	}

	client, err := service.NewS3Client(ctx, service.S3Options{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return service.NewS3Store(client, cfg.FilesBucket), nil
}
