package usecase

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeCatalog — каталог в памяти, реализует репозитории товаров и гистограмм.
type fakeCatalog struct {
	mu           sync.Mutex
	products     map[int64]*domain.Product
	nextID       int64
	listErr      error
	createErr    error
	setErr       map[int64]error
	setCalls     map[int64]int
	replaceCalls map[int64]int
}

func newFakeCatalog(products ...domain.Product) *fakeCatalog {
	c := &fakeCatalog{
		products:     make(map[int64]*domain.Product),
		setErr:       make(map[int64]error),
		setCalls:     make(map[int64]int),
		replaceCalls: make(map[int64]int),
	}
	for _, p := range products {
		c.products[p.ID] = &p
		c.nextID = max(c.nextID, p.ID)
	}
	return c
}

func (c *fakeCatalog) sortedIDs() []int64 {
	ids := make([]int64, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (c *fakeCatalog) fingerprint(id int64) domain.Fingerprint {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.products[id]; ok {
		return slices.Clone(p.Fingerprint)
	}
	return nil
}

func (c *fakeCatalog) ListWithFingerprint(context.Context) ([]domain.Candidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listErr != nil {
		return nil, c.listErr
	}

	var res []domain.Candidate
	for _, id := range c.sortedIDs() {
		if p := c.products[id]; p.HasFingerprint() {
			res = append(res, domain.Candidate{ProductID: id, Fingerprint: slices.Clone(p.Fingerprint)})
		}
	}
	return res, nil
}

func (c *fakeCatalog) ListMissingFingerprint(context.Context) ([]domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listErr != nil {
		return nil, c.listErr
	}

	var res []domain.Product
	for _, id := range c.sortedIDs() {
		if p := c.products[id]; !p.HasFingerprint() && p.ImageRef != "" {
			res = append(res, *p)
		}
	}
	return res, nil
}

func (c *fakeCatalog) SetFingerprint(_ context.Context, id int64, fp domain.Fingerprint) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setCalls[id]++
	if err := c.setErr[id]; err != nil {
		return false, err
	}

	p, ok := c.products[id]
	if !ok || p.HasFingerprint() {
		return false, nil
	}
	p.Fingerprint = slices.Clone(fp)
	return true, nil
}

func (c *fakeCatalog) ReplaceFingerprint(_ context.Context, id int64, fp domain.Fingerprint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.replaceCalls[id]++
	p, ok := c.products[id]
	if !ok {
		return e.ErrProductNotFound
	}
	p.Fingerprint = slices.Clone(fp)
	return nil
}

func (c *fakeCatalog) Create(_ context.Context, product *domain.Product) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.createErr != nil {
		return nil, c.createErr
	}

	c.nextID++
	created := *product
	created.ID = c.nextID
	created.CreatedAt = time.Now()
	c.products[created.ID] = &created
	return &created, nil
}

func (c *fakeCatalog) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}
	res := *p
	return &res, nil
}

func (c *fakeCatalog) List(_ context.Context, limit, offset int) ([]domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.sortedIDs()
	res := make([]domain.Product, 0, limit)
	for i := offset; i < len(ids) && len(res) < limit; i++ {
		res = append(res, *c.products[ids[i]])
	}
	return res, nil
}

func (c *fakeCatalog) GetProductsInfo(_ context.Context, ids []int64) ([]ProductInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := make([]ProductInfo, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			res = append(res, NewProductInfo(p.ID, p.Name, p.CategoryName, p.Price, p.ImageRef))
		}
	}
	return res, nil
}

// remove удаляет товар, не трогая уже выданных кандидатов.
func (c *fakeCatalog) remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

type fakeCategoryRepo struct{}

func (fakeCategoryRepo) Create(_ context.Context, category *domain.Category) (*domain.Category, error) {
	return &domain.Category{ID: 1, Name: category.Name}, nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls map[string]int
	delay time.Duration
}

func newFakeFetcher(data map[string][]byte) *fakeFetcher {
	return &fakeFetcher{data: data, calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	f.calls[ref]++
	data, ok := f.data[ref]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, e.Wrap("fakeFetcher.Fetch", fmt.Errorf("%w: %w", e.ErrFetchFailed, ctx.Err()))
		}
	}

	if !ok {
		return nil, e.Wrap("fakeFetcher.Fetch", e.ErrFetchFailed)
	}
	return data, nil
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

type fakePublisher struct {
	mu     sync.Mutex
	events []FingerprintStoredEvent
	err    error
}

func (p *fakePublisher) PublishFingerprintStored(_ context.Context, event *FingerprintStoredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, *event)
	return p.err
}

func (p *fakePublisher) published() []FingerprintStoredEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

type fakeMetrics struct {
	mu       sync.Mutex
	searches []string
	backfill map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{backfill: make(map[string]int)}
}

func (m *fakeMetrics) ObserveSearch(outcome string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, outcome)
}

func (m *fakeMetrics) ObserveBackfillItem(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backfill[outcome]++
}

func (m *fakeMetrics) backfillCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backfill[outcome]
}

type fakeCache struct {
	mu      sync.Mutex
	items   map[int64]ProductInfo
	getErr  error
	deleted []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[int64]ProductInfo)}
}

func (c *fakeCache) GetProducts(_ context.Context, ids []int64) (map[int64]ProductInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return nil, c.getErr
	}

	res := make(map[int64]ProductInfo)
	for _, id := range ids {
		if p, ok := c.items[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (c *fakeCache) SetProducts(_ context.Context, products []ProductInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range products {
		c.items[p.ID] = p
	}
	return nil
}

func (c *fakeCache) DeleteProducts(_ context.Context, ids []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		delete(c.items, id)
	}
	c.deleted = append(c.deleted, ids...)
	return nil
}

func (c *fakeCache) has(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

type fakeImages struct {
	mu        sync.Mutex
	uploadErr error
	uploaded  []string
	cleaned   []string
}

func (f *fakeImages) UploadImage(_ context.Context, req *UploadImageReq) (*UploadImageRes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.uploadErr != nil {
		return nil, f.uploadErr
	}

	key := fmt.Sprintf("products/%d.png", len(f.uploaded)+1)
	f.uploaded = append(f.uploaded, key)
	return NewUploadImageRes(key, "s3://products/"+key), nil
}

func (f *fakeImages) CleanupImages(keys []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, keys...)
}

type fakeFingerprinter struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (f *fakeFingerprinter) StoreFromImage(_ context.Context, productID int64, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, productID)
	return f.err
}
