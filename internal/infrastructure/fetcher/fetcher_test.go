package fetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubObjects struct {
	bucket, key string
	data        []byte
	err         error
}

func (s *stubObjects) Get(_ context.Context, bucket, key string, _ int64) ([]byte, error) {
	s.bucket, s.key = bucket, key
	return s.data, s.err
}

func newTestFetcher(objects ObjectReader, maxBytes int64) *Fetcher {
	return NewFetcher(NewHTTPClient("test", 2*time.Second, logger.Nop{}), objects, maxBytes, logger.Nop{})
}

func TestFetch_HTTP(t *testing.T) {
	payload := []byte("\x89PNG fake body")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/*", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(payload)
		case "/big.png":
			_, _ = w.Write(bytes.Repeat([]byte{1}, 2048))
		case "/slow.png":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(nil, 1024)

	data, err := f.Fetch(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.png")
	assert.ErrorIs(t, err, e.ErrFetchFailed)

	_, err = f.Fetch(context.Background(), srv.URL+"/big.png")
	assert.ErrorIs(t, err, e.ErrFetchFailed)
	assert.ErrorIs(t, err, e.ErrFileTooLarge)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, srv.URL+"/slow.png")
	assert.ErrorIs(t, err, e.ErrFetchFailed)
}

func TestFetch_ObjectStore(t *testing.T) {
	objects := &stubObjects{data: []byte("object bytes")}
	f := newTestFetcher(objects, 1024)

	data, err := f.Fetch(context.Background(), "s3://product-images/mugs/red.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("object bytes"), data)
	assert.Equal(t, "product-images", objects.bucket)
	assert.Equal(t, "mugs/red.png", objects.key)

	objects.err = errors.New("no such key")
	_, err = f.Fetch(context.Background(), "s3://product-images/mugs/blue.png")
	assert.ErrorIs(t, err, e.ErrFetchFailed)
}

func TestFetch_UnsupportedRefs(t *testing.T) {
	f := newTestFetcher(nil, 1024)

	for _, ref := range []string{"", "ftp://example.com/a.png", "/local/path.png", "s3://bucket/key.png", "::not a url"} {
		_, err := f.Fetch(context.Background(), ref)
		assert.ErrorIs(t, err, e.ErrFetchFailed, ref)
	}
}
