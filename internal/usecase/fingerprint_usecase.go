package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BackfillOptions — параметры пакетного расчёта гистограмм.
type BackfillOptions struct {
	Workers      int           // одновременно обрабатываемых товаров, 1 = последовательно
	FetchTimeout time.Duration // таймаут загрузки одного изображения
	FetchRPS     float64       // ограничение исходящих загрузок в секунду, 0 = без ограничения
}

// FingerprintUseCase считает и сохраняет цветовые гистограммы товаров.
type FingerprintUseCase struct {
	repo      FingerprintRepository
	products  ProductGetter
	extractor FingerprintExtractor
	fetcher   ImageFetcher
	publisher EventPublisher
	metrics   Metrics
	opts      BackfillOptions
	logger    logger.Logger

	shutdownCtx context.Context
	running     atomic.Bool
	wg          sync.WaitGroup
}

func NewFingerprintUC(
	repo FingerprintRepository,
	products ProductGetter,
	extractor FingerprintExtractor,
	fetcher ImageFetcher,
	publisher EventPublisher,
	metrics Metrics,
	opts BackfillOptions,
	logger logger.Logger,
	shutdownCtx context.Context,
) *FingerprintUseCase {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}

	return &FingerprintUseCase{
		repo:        repo,
		products:    products,
		extractor:   extractor,
		fetcher:     fetcher,
		publisher:   publisher,
		metrics:     metrics,
		opts:        opts,
		logger:      logger,
		shutdownCtx: shutdownCtx,
	}
}

type backfillStats struct {
	stored, present, failed atomic.Int64
}

// BackfillMissing досчитывает гистограммы для всех товаров, у которых их нет.
// Ошибка одного товара логируется и не прерывает пакет; наружу возвращается
// только ошибка получения списка или отмена контекста.
func (f *FingerprintUseCase) BackfillMissing(ctx context.Context) error {
	const op = "FingerprintUseCase.BackfillMissing"

	products, err := f.repo.ListMissingFingerprint(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	if len(products) == 0 {
		f.logger.Infof("Backfill: all products already have fingerprints")
		return nil
	}

	limit := rate.Inf
	if f.opts.FetchRPS > 0 {
		limit = rate.Limit(f.opts.FetchRPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	var (
		stats backfillStats
		g     errgroup.Group
	)
	g.SetLimit(f.opts.Workers)

	started := time.Now()
	for _, product := range products {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			switch outcome := f.backfillOne(ctx, product, limiter); outcome {
			case BackfillStored:
				stats.stored.Add(1)
			case BackfillAlreadyPresent:
				stats.present.Add(1)
			default:
				stats.failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	f.logger.Infof(
		"Backfill finished: total=%d stored=%d already_present=%d failed=%d elapsed=%s",
		len(products), stats.stored.Load(), stats.present.Load(), stats.failed.Load(), time.Since(started),
	)

	if err := ctx.Err(); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// StartBackfill запускает BackfillMissing в фоне на контексте приложения.
// Возвращает false, если прогон уже идёт.
func (f *FingerprintUseCase) StartBackfill() bool {
	const op = "FingerprintUseCase.StartBackfill"

	if !f.running.CompareAndSwap(false, true) {
		return false
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer f.running.Store(false)

		if err := f.BackfillMissing(f.shutdownCtx); err != nil {
			f.logger.Errorf(e.Wrap(op, err), "background backfill failed")
		}
	}()

	return true
}

// WaitBackfill ожидает завершения фонового прогона с учётом таймаута завершения приложения.
func (f *FingerprintUseCase) WaitBackfill(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("backfill did not stop before shutdown deadline: %w", ctx.Err())
	}
}

// backfillOne обрабатывает один товар и возвращает исход для метрик.
func (f *FingerprintUseCase) backfillOne(ctx context.Context, product domain.Product, limiter *rate.Limiter) string {
	outcome := f.processOne(ctx, product, limiter)
	f.metrics.ObserveBackfillItem(outcome)

	return outcome
}

func (f *FingerprintUseCase) processOne(ctx context.Context, product domain.Product, limiter *rate.Limiter) string {
	const op = "FingerprintUseCase.processOne"

	if err := limiter.Wait(ctx); err != nil {
		f.logger.Warnf("Backfill skipped product %d: %v", product.ID, e.Wrap(op, err))
		return BackfillFetchFailed
	}

	data, err := f.fetch(ctx, product.ImageRef)
	if err != nil {
		f.logger.Warnf("Backfill skipped product %d (%s): %v", product.ID, product.ImageRef, e.Wrap(op, err))
		return BackfillFetchFailed
	}

	fp, err := f.extractor.Extract(data)
	if err != nil {
		f.logger.Warnf("Backfill skipped product %d (%s): %v", product.ID, product.ImageRef, e.Wrap(op, err))
		return BackfillExtractionFailed
	}

	stored, err := f.repo.SetFingerprint(ctx, product.ID, fp)
	if err != nil {
		f.logger.Errorf(err, "Backfill failed to store fingerprint for product %d", product.ID)
		return BackfillStoreFailed
	}
	if !stored {
		f.logger.Debugf("Backfill: product %d already has a fingerprint", product.ID)
		return BackfillAlreadyPresent
	}

	f.publish(ctx, product.ID, false)

	return BackfillStored
}

// RecomputeFingerprint пересчитывает гистограмму товара по его текущему изображению
// и перезаписывает сохранённую.
func (f *FingerprintUseCase) RecomputeFingerprint(ctx context.Context, productID int64) error {
	const op = "FingerprintUseCase.RecomputeFingerprint"

	if productID <= 0 {
		return e.Wrap(op, e.ErrInvalidProductID)
	}

	product, err := f.products.GetByID(ctx, productID)
	if err != nil {
		return e.Wrap(op, err)
	}

	if product.ImageRef == "" {
		return e.Wrap(op, e.ErrNoImageSupplied)
	}

	data, err := f.fetch(ctx, product.ImageRef)
	if err != nil {
		return e.Wrap(op, err)
	}

	fp, err := f.extractor.Extract(data)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := f.repo.ReplaceFingerprint(ctx, productID, fp); err != nil {
		return e.Wrap(op, err)
	}

	f.publish(ctx, productID, true)

	return nil
}

// StoreFromImage сохраняет гистограмму по уже имеющимся байтам изображения,
// не перезаписывая существующую.
func (f *FingerprintUseCase) StoreFromImage(ctx context.Context, productID int64, data []byte) error {
	const op = "FingerprintUseCase.StoreFromImage"

	fp, err := f.extractor.Extract(data)
	if err != nil {
		return e.Wrap(op, err)
	}

	stored, err := f.repo.SetFingerprint(ctx, productID, fp)
	if err != nil {
		return e.Wrap(op, err)
	}

	if stored {
		f.publish(ctx, productID, false)
	}

	return nil
}

// fetch загружает изображение с таймаутом на один товар.
func (f *FingerprintUseCase) fetch(ctx context.Context, ref string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.opts.FetchTimeout)
	defer cancel()

	data, err := f.fetcher.Fetch(fetchCtx, ref)
	if err != nil {
		if !errors.Is(err, e.ErrFetchFailed) {
			err = errors.Join(e.ErrFetchFailed, err)
		}
		return nil, err
	}

	return data, nil
}

// publish отправляет событие о сохранённой гистограмме. Ошибка публикации не влияет на результат.
func (f *FingerprintUseCase) publish(ctx context.Context, productID int64, recomputed bool) {
	const op = "FingerprintUseCase.publish"

	event := NewFingerprintStoredEvent(productID, f.extractor.Bins(), recomputed)
	if err := f.publisher.PublishFingerprintStored(ctx, event); err != nil {
		f.logger.Warnf("Failed to publish fingerprint event for product %d: %v", productID, e.Wrap(op, err))
	}
}
