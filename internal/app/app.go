package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/shop-backend/internal/cfg"
	v1Http "github.com/DRSN-tech/shop-backend/internal/delivery/v1/http"
	"github.com/DRSN-tech/shop-backend/internal/infrastructure/fetcher"
	"github.com/DRSN-tech/shop-backend/internal/infrastructure/histogram"
	"github.com/DRSN-tech/shop-backend/internal/infrastructure/kafka"
	"github.com/DRSN-tech/shop-backend/internal/infrastructure/metrics"
	minioInfra "github.com/DRSN-tech/shop-backend/internal/infrastructure/minio"
	s3Repo "github.com/DRSN-tech/shop-backend/internal/repository/minio"
	"github.com/DRSN-tech/shop-backend/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/shop-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-backend/internal/repository/redis"
	redisConv "github.com/DRSN-tech/shop-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/clients"
	"github.com/DRSN-tech/shop-backend/pkg/closer"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/DRSN-tech/shop-backend/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout   = 15 * time.Second
	startupTimeout    = 10 * time.Second
	kafkaTopicTimeout = 10 * time.Second
)

// App связывает зависимости сервиса и управляет его жизненным циклом.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	httpSrv *v1Http.Server
	closer  *closer.Closer

	fingerprints *usecase.FingerprintUseCase

	// отменяется при остановке: прерывает фоновый backfill и очистку MinIO
	lifetime context.Context
	stop     context.CancelFunc
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	lifetime, stop := context.WithCancel(context.Background())
	a := &App{
		cfg:      cfg,
		logger:   log,
		closer:   closer.NewCloser(log, 2*time.Second),
		lifetime: lifetime,
		stop:     stop,
	}

	if err := a.init(); err != nil {
		stop()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := a.closer.Close(ctx); closeErr != nil {
			log.Warnf("partial init cleanup: %v", closeErr)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return a, nil
}

func (a *App) init() error {
	startCtx, cancel := context.WithTimeout(a.lifetime, startupTimeout)
	defer cancel()

	db, err := a.initPGDB(startCtx)
	if err != nil {
		return err
	}
	a.closer.Add("postgres", func(context.Context) error {
		db.Close()
		return nil
	})

	minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
	if err != nil {
		a.logger.Errorf(err, "failed to initialize minio client")
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if err := clients.EnsureBucket(startCtx, minioClient, a.cfg.Minio.BucketName); err != nil {
		a.logger.Errorf(err, "failed to initialize MinIO bucket")
		return e.Wrap(whereami.WhereAmI(), err)
	}
	imageRepo := s3Repo.NewImageRepo(minioClient, a.cfg.Minio)

	redisClient := clients.NewRedisClient(a.cfg.Redis)
	a.closer.Add("redis", func(context.Context) error {
		return redisClient.Close()
	})
	if err := redisClient.Ping(startCtx); err != nil {
		a.logger.Errorf(err, "failed to connect to redis")
		return e.Wrap(whereami.WhereAmI(), err)
	}

	publisher, err := a.initPublisher()
	if err != nil {
		return err
	}

	fp := a.cfg.Fingerprint
	m := metrics.New(prometheus.DefaultRegisterer)
	extractor := histogram.NewExtractor(fp.Bins)

	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.NewProductConverter(), fp.Bins, a.logger)
	categoryRepo := pgdb.NewCategoryRepo(pgdbConv.NewCategoryConverter())
	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.NewProductInfoConverter(), a.cfg.Redis, a.logger)

	imagesInfra := minioInfra.NewMinioInfrastructure(imageRepo, a.cfg.Minio, a.logger, a.lifetime)
	imageFetcher := fetcher.NewFetcher(
		fetcher.NewHTTPClient("image-fetcher", fp.FetchTimeout, a.logger),
		imageRepo, fp.FetchMaxBytes, a.logger,
	)

	fingerprintUC := usecase.NewFingerprintUC(
		productRepo,
		productRepo,
		extractor,
		imageFetcher,
		publisher,
		m,
		usecase.BackfillOptions{
			Workers:      fp.BackfillWorkers,
			FetchTimeout: fp.FetchTimeout,
			FetchRPS:     fp.FetchRPS,
		},
		a.logger,
		a.lifetime,
	)

	productUC := usecase.NewProductUC(
		productRepo,
		categoryRepo,
		db.Pool,
		imagesInfra,
		fingerprintUC,
		a.logger,
		cacheRepo,
	)

	searchUC := usecase.NewSearchUC(extractor, productRepo, productUC, m, fp.TopK, a.logger)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, a.cfg.Http, a.cfg.Admin, m, a.logger)
	router.Init(productUC, searchUC, fingerprintUC, promhttp.Handler())

	a.httpSrv = v1Http.NewServer(r, a.cfg.Http)
	a.fingerprints = fingerprintUC

	// Порядок закрытия обратный: сначала ждём фоновые задачи, потом закрываем хранилища.
	a.closer.Add("minio cleanup", func(ctx context.Context) error {
		return imagesInfra.WaitForCleanup(ctx)
	})
	a.closer.Add("backfill", func(ctx context.Context) error {
		return fingerprintUC.WaitBackfill(ctx)
	})
	a.closer.Add("background tasks", func(context.Context) error {
		a.stop()
		return nil
	})
	a.closer.Add("http server", func(ctx context.Context) error {
		return a.httpSrv.Stop(ctx)
	})

	return nil
}

// Run запускает HTTP-сервер и блокируется до сигнала остановки или фатальной ошибки сервера.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if a.cfg.Fingerprint.BackfillOnStart {
		a.fingerprints.StartBackfill()
	}

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(ctx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func (a *App) initPGDB(ctx context.Context) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, a.cfg.Db)
	if err != nil {
		a.logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(a.logger); err != nil {
		db.Close()
		a.logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		a.logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

// initPublisher возвращает Kafka-продюсер, а без KAFKA_BROKERS — заглушку.
func (a *App) initPublisher() (usecase.EventPublisher, error) {
	if !a.cfg.Kafka.Enabled() {
		a.logger.Infof("KAFKA_BROKERS not set, fingerprint events are not published")
		return kafka.NewNopPublisher(a.logger), nil
	}

	producer := kafka.NewProducer(a.logger, a.cfg.Kafka)
	if err := producer.EnsureTopic(kafkaTopicTimeout); err != nil {
		a.logger.Errorf(err, "failed to ensure kafka topic %s", a.cfg.Kafka.Topic)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("kafka producer", func(context.Context) error {
		return producer.Close()
	})

	return producer, nil
}
