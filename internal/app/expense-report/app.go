package expensereport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/expense-report/internal/awsutil"
	"github.com/magabrotheeeer/expense-report/internal/cache"
	"github.com/magabrotheeeer/expense-report/internal/config"
	"github.com/magabrotheeeer/expense-report/internal/lib/jwt"
	"github.com/magabrotheeeer/expense-report/internal/lib/sl"
	"github.com/magabrotheeeer/expense-report/internal/observability"
	"github.com/magabrotheeeer/expense-report/internal/report/xlsx"
	reportservice "github.com/magabrotheeeer/expense-report/internal/services/report"
	"github.com/magabrotheeeer/expense-report/internal/storage/s3store"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server            *http.Server
	logger            *slog.Logger
	verifier          *jwt.Verifier
	cache             *cache.Cache
	jwksRefreshPeriod time.Duration
}

// New собирает зависимости: конфигурацию AWS, хранилище, проверку токенов,
// необязательный кеш redis, заполнение шаблона и HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.expensereport.New"

	policy, err := xlsx.ParsePerDiemPolicy(cfg.PerDiemPolicy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	awsConfig, err := awsutil.Load(ctx, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	store := s3store.New(awsutil.NewS3Client(awsConfig, cfg.EndpointURL), cfg.Bucket, cfg.CallTimeout)

	verifier, err := jwt.Load(ctx, jwt.NewHTTPFetcher(cfg.JWKSURL(), cfg.JWKSFetchTimeout, logger), jwt.Options{
		Issuer:         cfg.IssuerURL(),
		Audience:       cfg.ClientID,
		MinRefreshWait: cfg.JWKSMinRefreshWait,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		cacheRedis  *cache.Cache
		reportCache reportservice.Cache
	)
	if cfg.AddressRedis != "" {
		cacheRedis, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		reportCache = cacheRedis
	} else {
		logger.Info("redis address is empty, report cache disabled")
	}

	populatorOpts := []xlsx.Option{xlsx.WithPerDiemPolicy(policy)}
	if cfg.HeaderImagePath != "" {
		populatorOpts = append(populatorOpts, xlsx.WithHeaderImage(cfg.HeaderImagePath))
	}
	populator := xlsx.New(cfg.TemplatePath, populatorOpts...)

	metrics := observability.NewMetrics()
	selector := reportservice.NewSelector(store, metrics, logger, reportservice.WithHeadConcurrency(cfg.HeadConcurrency))
	service := reportservice.NewService(store, selector, populator, reportCache, reportservice.Options{
		PresignTTL:     cfg.PresignTTL,
		CacheTTL:       cfg.LinkCacheTTL,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Verifier: verifier,
		Service:  service,
		Metrics:  metrics,
		Limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),

		Development: cfg.Env == "local",
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:            srv,
		logger:            logger,
		verifier:          verifier,
		cache:             cacheRedis,
		jwksRefreshPeriod: cfg.JWKSRefreshPeriod,
	}, nil
}

// Run запускает HTTP-сервер и фоновое обновление ключей до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	go a.verifier.Run(refreshCtx, a.jwksRefreshPeriod)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.closeCache()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.closeCache()
		return err
	}
}

func (a *App) closeCache() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis connection", sl.Err(err))
	}
}
