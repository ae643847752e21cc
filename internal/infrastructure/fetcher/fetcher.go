package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

// ObjectReader читает объекты из хранилища изображений (MinIO).
type ObjectReader interface {
	Get(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, error)
}

// Fetcher загружает изображения товаров по ссылке из каталога.
// Поддерживаются http(s):// и s3://bucket/key. Любая ошибка оборачивает e.ErrFetchFailed.
type Fetcher struct {
	client   *http.Client
	objects  ObjectReader
	maxBytes int64
	logger   logger.Logger
}

func NewFetcher(client *http.Client, objects ObjectReader, maxBytes int64, logger logger.Logger) *Fetcher {
	return &Fetcher{
		client:   client,
		objects:  objects,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	const op = "Fetcher.Fetch"

	data, err := f.fetch(ctx, ref)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %w", e.ErrFetchFailed, err))
	}

	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, ref string) ([]byte, error) {
	if loc, ok := domain.ParseObjectLocator(ref); ok {
		if f.objects == nil {
			return nil, fmt.Errorf("%s: %w", ref, e.ErrUnsupportedImageRef)
		}
		return f.objects.Get(ctx, loc.Bucket, loc.Key, f.maxBytes)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%q: %w", ref, e.ErrUnsupportedImageRef)
	}

	return f.fetchHTTP(ctx, u)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, u.Redacted())
	}

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("content length %d: %w", resp.ContentLength, e.ErrFileTooLarge)
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, e.ErrFileTooLarge
	}

	return data, nil
}
