package closer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

const defaultForcedTimeout = 2 * time.Second

// Func — функция освобождения ресурса.
type Func func(ctx context.Context) error

type entry struct {
	name string
	fn   Func
}

// Closer освобождает зарегистрированные ресурсы в обратном порядке (LIFO).
// Ресурсы, не успевшие закрыться до отмены контекста, закрываются параллельно
// с отдельным таймаутом forcedTimeout.
type Closer struct {
	mu            sync.Mutex
	entries       []entry
	once          sync.Once
	err           error
	forcedTimeout time.Duration
	logger        logger.Logger
}

func NewCloser(logger logger.Logger, forcedTimeout time.Duration) *Closer {
	if forcedTimeout <= 0 {
		forcedTimeout = defaultForcedTimeout
	}

	return &Closer{
		forcedTimeout: forcedTimeout,
		logger:        logger,
	}
}

// Add регистрирует ресурс. name попадает в логи и текст ошибки.
func (c *Closer) Add(name string, f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry{name: name, fn: f})
}

// Close выполняется один раз; повторные вызовы возвращают результат первого.
func (c *Closer) Close(ctx context.Context) error {
	c.once.Do(func() {
		c.mu.Lock()
		entries := c.entries
		c.entries = nil
		c.mu.Unlock()

		c.err = c.close(ctx, entries)
	})

	return c.err
}

func (c *Closer) close(ctx context.Context, entries []entry) error {
	var errs []error

	for i := len(entries) - 1; i >= 0; i-- {
		ent := entries[i]
		done := make(chan error, 1)
		go func() {
			done <- ent.fn(ctx)
		}()

		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", ent.name, err))
				continue
			}
			c.logger.Debugf("closer: %s closed", ent.name)
		case <-ctx.Done():
			c.logger.Warnf("closer: deadline reached on %s, forcing %d remaining", ent.name, i+1)
			errs = append(errs, fmt.Errorf("%s: %w", ent.name, ctx.Err()))
			errs = append(errs, c.forceClose(entries[:i])...)
			return errors.Join(errs...)
		}
	}

	return errors.Join(errs...)
}

// forceClose закрывает оставшиеся ресурсы параллельно на свежем контексте.
func (c *Closer) forceClose(entries []entry) []error {
	ctx, cancel := context.WithTimeout(context.Background(), c.forcedTimeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, ent := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ent.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s (forced): %w", ent.name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errs
}
