package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

// SearchUseCase ищет товары, визуально похожие на загруженное изображение.
// Состояния между вызовами не хранит.
type SearchUseCase struct {
	extractor  FingerprintExtractor
	candidates CandidateSource
	products   ProductInfoProvider
	metrics    Metrics
	topK       int
	logger     logger.Logger
}

func NewSearchUC(
	extractor FingerprintExtractor,
	candidates CandidateSource,
	products ProductInfoProvider,
	metrics Metrics,
	topK int,
	logger logger.Logger,
) *SearchUseCase {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	return &SearchUseCase{
		extractor:  extractor,
		candidates: candidates,
		products:   products,
		metrics:    metrics,
		topK:       topK,
		logger:     logger,
	}
}

// SearchByImage строит гистограмму запроса, ранжирует по ней каталог и подставляет
// витринные поля. Товары, исчезнувшие из каталога между ранжированием и выборкой, пропускаются.
func (s *SearchUseCase) SearchByImage(ctx context.Context, req *SearchByImageReq) (*SearchByImageRes, error) {
	const op = "SearchUseCase.SearchByImage"

	started := time.Now()
	candidatesCount := 0
	outcome := SearchInternalError
	defer func() {
		s.metrics.ObserveSearch(outcome, candidatesCount, time.Since(started))
	}()

	if req == nil || len(req.Image) == 0 {
		outcome = SearchNoImage
		return nil, e.Wrap(op, e.ErrNoImageSupplied)
	}

	query, err := s.extractor.Extract(req.Image)
	if err != nil {
		outcome = SearchExtractionFailed
		return nil, e.Wrap(op, err)
	}

	candidates, err := s.candidates.ListWithFingerprint(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	candidatesCount = len(candidates)

	matches := domain.Rank(query, candidates, s.topK)
	if len(matches) == 0 {
		outcome = SearchOK
		return &SearchByImageRes{Items: []SearchResultItem{}, Candidates: candidatesCount}, nil
	}

	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ProductID)
	}

	info, err := s.products.GetProductsInfo(ctx, NewGetProductsReq(ids))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	byID := make(map[int64]ProductInfo, len(info.Products))
	for _, p := range info.Products {
		byID[p.ID] = p
	}

	items := make([]SearchResultItem, 0, len(matches))
	for _, m := range matches {
		p, ok := byID[m.ProductID]
		if !ok {
			s.logger.Debugf("Search: ranked product %d is gone from the catalog", m.ProductID)
			continue
		}
		items = append(items, SearchResultItem{
			ID:       p.ID,
			Name:     p.Name,
			ImageRef: p.ImageRef,
			Price:    p.Price,
			Score:    m.Score,
		})
	}

	outcome = SearchOK
	return &SearchByImageRes{Items: items, Candidates: candidatesCount}, nil
}
