package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/cfg"
	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "s3cret-admin-token"

type stubSearchUC struct {
	res *usecase.SearchByImageRes
	err error
	got []byte
}

func (s *stubSearchUC) SearchByImage(_ context.Context, req *usecase.SearchByImageReq) (*usecase.SearchByImageRes, error) {
	s.got = req.Image
	return s.res, s.err
}

type stubProductUC struct {
	products   []domain.Product
	registered *usecase.AddNewProductReq
	err        error
}

func (s *stubProductUC) RegisterNewProduct(_ context.Context, req *usecase.AddNewProductReq) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.registered = req
	return &domain.Product{ID: 42, Name: req.Name, CategoryName: req.CategoryName, Price: req.Price, Stock: req.Stock, ImageRef: "s3://product-images/x.png"}, nil
}

func (s *stubProductUC) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, e.Wrap("stubProductUC.GetProduct", e.ErrProductNotFound)
}

func (s *stubProductUC) ListProducts(_ context.Context, req *usecase.ListProductsReq) ([]domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

func (s *stubProductUC) GetProductsInfo(context.Context, *usecase.GetProductsReq) (*usecase.GetProductsRes, error) {
	return usecase.NewGetProductsRes(nil, nil), nil
}

type stubFingerprintUC struct {
	started     bool
	recomputeID int64
	err         error
}

func (s *stubFingerprintUC) BackfillMissing(context.Context) error { return nil }

func (s *stubFingerprintUC) StartBackfill() bool {
	if s.started {
		return false
	}
	s.started = true
	return true
}

func (s *stubFingerprintUC) RecomputeFingerprint(_ context.Context, id int64) error {
	s.recomputeID = id
	return s.err
}

type recordingMetrics struct {
	mu    sync.Mutex
	paths []string
}

func (m *recordingMetrics) ObserveHTTP(path, method string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, method+" "+path)
}

type testAPI struct {
	handler  http.Handler
	search   *stubSearchUC
	products *stubProductUC
	fp       *stubFingerprintUC
	metrics  *recordingMetrics
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{
		search:   &stubSearchUC{res: &usecase.SearchByImageRes{Items: []usecase.SearchResultItem{}}},
		products: &stubProductUC{},
		fp:       &stubFingerprintUC{},
		metrics:  &recordingMetrics{},
	}

	mux := chi.NewRouter()
	router := NewRouter(mux,
		&cfg.HTTPConfig{MaxUploadBytes: 1 << 20, SwaggerURL: "/swagger/doc.json"},
		&cfg.AdminCfg{Token: testAdminToken},
		api.metrics, logger.Nop{},
	)
	router.Init(api.products, api.search, api.fp, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "# metrics")
	}))
	api.handler = mux

	return api
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		img.Set(i%4, i/4, color.NRGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, url string, fields map[string]string, fileField string, file []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, "upload.bin")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var res ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestSearchByImage_OK(t *testing.T) {
	api := newTestAPI(t)
	api.search.res = &usecase.SearchByImageRes{Items: []usecase.SearchResultItem{
		{ID: 2, Name: "red mug", ImageRef: "https://cdn.example.com/red.png", Price: 1250, Score: 1},
		{ID: 7, Name: "pink mug", ImageRef: "s3://product-images/pink.png", Price: 99, Score: 0.83},
	}, Candidates: 12}

	img := pngBytes(t)
	rec := api.do(multipartRequest(t, "/api/v1/search-by-image", nil, "image", img))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, img, api.search.got)
	assert.JSONEq(t, `[
		{"id": 2, "name": "red mug", "image": "https://cdn.example.com/red.png", "price": 12.50, "similarity": 1},
		{"id": 7, "name": "pink mug", "image": "s3://product-images/pink.png", "price": 0.99, "similarity": 0.83}
	]`, rec.Body.String())
}

func TestSearchByImage_EmptyResultIsArray(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(multipartRequest(t, "/api/v1/search-by-image", nil, "image", pngBytes(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSearchByImage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		ucErr    error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "no image field",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "/api/v1/search-by-image", map[string]string{"q": "x"}, "", nil) },
			wantCode: http.StatusBadRequest,
			wantMsg:  "no image supplied",
		},
		{
			name:     "empty image",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "/api/v1/search-by-image", nil, "image", []byte{}) },
			wantCode: http.StatusBadRequest,
			wantMsg:  "no image supplied",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/v1/search-by-image", bytes.NewReader([]byte("{}")))
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "no image supplied",
		},
		{
			name: "no body",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/v1/search-by-image", nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "no image supplied",
		},
		{
			name:     "too large",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "/api/v1/search-by-image", nil, "image", make([]byte, 1<<20+100)) },
			wantCode: http.StatusRequestEntityTooLarge,
			wantMsg:  e.ErrFileTooLarge.Error(),
		},
		{
			name:     "extraction failed",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "/api/v1/search-by-image", nil, "image", []byte("random")) },
			ucErr:    e.Wrap("SearchUseCase.SearchByImage", e.ErrExtractionFailed),
			wantCode: http.StatusUnprocessableEntity,
			wantMsg:  "image could not be processed",
		},
		{
			name:     "internal",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "/api/v1/search-by-image", nil, "image", pngBytes(t)) },
			ucErr:    errors.New("pq: connection refused"),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.search.err = tt.ucErr

			rec := api.do(tt.req(t))

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			res := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, res.Code)
			assert.Equal(t, tt.wantMsg, res.Message)
		})
	}
}

func TestProducts_ListAndGet(t *testing.T) {
	api := newTestAPI(t)
	api.products.products = []domain.Product{
		{ID: 1, Name: "Lamp", CategoryName: "Home", Price: 259900, Stock: 4, ImageRef: "https://cdn.example.com/lamp.jpg", Fingerprint: domain.Fingerprint{1}},
	}

	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=10&offset=0", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Lamp", list[0]["name"])
	assert.Equal(t, 2599.0, list[0]["price"])
	assert.Equal(t, true, list[0]["has_fingerprint"])

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func adminRequest(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	return req
}

func TestAdmin_Guard(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(httptest.NewRequest(http.MethodPost, "/api/v1/admin/recompute-histograms", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/recompute-histograms", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = api.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin access required", decodeError(t, rec).Message)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/recompute-histograms", nil)
	req.Header.Set("Authorization", "Basic "+testAdminToken)
	rec = api.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.False(t, api.fp.started)
}

func TestAdmin_RecomputeHistograms(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(adminRequest(httptest.NewRequest(http.MethodPost, "/api/v1/admin/recompute-histograms", nil)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"message": "Recompute started"}`, rec.Body.String())
	assert.True(t, api.fp.started)

	rec = api.do(adminRequest(httptest.NewRequest(http.MethodPost, "/api/v1/admin/recompute-histograms", nil)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"message": "Recompute already running"}`, rec.Body.String())
}

func TestAdmin_RecomputeProductFingerprint(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		ucErr    error
		wantCode int
	}{
		{"ok", "/api/v1/admin/products/5/fingerprint", nil, http.StatusOK},
		{"bad id", "/api/v1/admin/products/zero/fingerprint", nil, http.StatusBadRequest},
		{"not found", "/api/v1/admin/products/5/fingerprint", e.ErrProductNotFound, http.StatusNotFound},
		{"fetch failed", "/api/v1/admin/products/5/fingerprint", errors.Join(e.ErrFetchFailed, e.ErrFileTooLarge), http.StatusBadGateway},
		{"not an image", "/api/v1/admin/products/5/fingerprint", e.ErrExtractionFailed, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.fp.err = tt.ucErr

			rec := api.do(adminRequest(httptest.NewRequest(http.MethodPost, tt.path, nil)))
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, int64(5), api.fp.recomputeID)
			}
		})
	}
}

func TestAdmin_RegisterNewProduct(t *testing.T) {
	api := newTestAPI(t)

	req := adminRequest(multipartRequest(t, "/api/v1/admin/products",
		map[string]string{"name": "Red mug", "category": "Kitchen", "price": "12.50", "stock": "3"},
		"image", pngBytes(t),
	))
	rec := api.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, api.products.registered)
	assert.Equal(t, int64(1250), api.products.registered.Price)
	assert.Equal(t, int64(3), api.products.registered.Stock)
	assert.Equal(t, "image/png", api.products.registered.Image.MimeType)

	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 42.0, res["id"])
	assert.Equal(t, 12.5, res["price"])
}

func TestAdmin_RegisterNewProduct_Validation(t *testing.T) {
	valid := map[string]string{"name": "Mug", "category": "Kitchen", "price": "1"}

	tests := []struct {
		name     string
		fields   map[string]string
		file     []byte
		noFile   bool
		ucErr    error
		wantCode int
	}{
		{name: "missing name", fields: map[string]string{"category": "Kitchen", "price": "1"}, wantCode: http.StatusBadRequest},
		{name: "bad price", fields: map[string]string{"name": "Mug", "category": "Kitchen", "price": "abc"}, wantCode: http.StatusBadRequest},
		{name: "too precise price", fields: map[string]string{"name": "Mug", "category": "Kitchen", "price": "1.999"}, wantCode: http.StatusBadRequest},
		{name: "bad stock", fields: map[string]string{"name": "Mug", "category": "Kitchen", "price": "1", "stock": "-2"}, wantCode: http.StatusBadRequest},
		{name: "no image", fields: valid, noFile: true, wantCode: http.StatusBadRequest},
		{name: "text file", fields: valid, file: []byte("plain text, not an image"), wantCode: http.StatusUnsupportedMediaType},
		{name: "duplicate", fields: valid, ucErr: e.ErrProductAlreadyExists, wantCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.products.err = tt.ucErr

			fileField, file := "image", tt.file
			if tt.noFile {
				fileField = ""
			} else if file == nil {
				file = pngBytes(t)
			}

			rec := api.do(adminRequest(multipartRequest(t, "/api/v1/admin/products", tt.fields, fileField, file)))
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	api := newTestAPI(t)
	api.products.products = []domain.Product{{ID: 1}}

	api.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
	api.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, api.metrics.paths, "GET /api/v1/products/{id}")
	assert.Contains(t, api.metrics.paths, "GET /metrics")
}
