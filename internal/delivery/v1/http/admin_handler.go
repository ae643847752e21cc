package http

import (
	"net/http"

	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

type AdminHandler struct {
	fingerprintUsecase usecase.FingerprintUC
	logger             logger.Logger
}

func NewAdminHandler(fingerprintUsecase usecase.FingerprintUC, logger logger.Logger) *AdminHandler {
	return &AdminHandler{fingerprintUsecase: fingerprintUsecase, logger: logger}
}

// recomputeHistograms
//
//	@Summary		Досчитать недостающие гистограммы
//	@Description	Запускает в фоне расчёт гистограмм для товаров, у которых их нет. Существующие не перезаписываются.
//	@Tags			admin
//	@Security		AdminToken
//	@Produce		json
//	@Success		202	{object}	MessageResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Router			/admin/recompute-histograms [post]
func (a *AdminHandler) recomputeHistograms(w http.ResponseWriter, r *http.Request) {
	if !a.fingerprintUsecase.StartBackfill() {
		WriteSuccess(w, http.StatusAccepted, MessageResponse{Message: "Recompute already running"})
		return
	}

	a.logger.Infof("fingerprint backfill started by admin request")
	WriteSuccess(w, http.StatusAccepted, MessageResponse{Message: "Recompute started"})
}

// recomputeProductFingerprint
//
//	@Summary		Пересчитать гистограмму товара
//	@Description	Загружает текущее изображение товара и перезаписывает его гистограмму
//	@Tags			admin
//	@Security		AdminToken
//	@Produce		json
//	@Param			id	path		int	true	"ID товара"
//	@Success		200	{object}	MessageResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/admin/products/{id}/fingerprint [post]
func (a *AdminHandler) recomputeProductFingerprint(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := a.fingerprintUsecase.RecomputeFingerprint(r.Context(), id); err != nil {
		a.logger.Warnf("recompute fingerprint of product %d: %v", id, err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, MessageResponse{Message: "Fingerprint recomputed"})
}
