package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/stretchr/testify/assert"
)

func TestParsePriceToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{"600", 60000, nil},
		{"599.99", 59999, nil},
		{" 12.5 ", 1250, nil},
		{"12.500", 1250, nil},
		{"0.01", 1, nil},
		{"1.999", 0, e.ErrPricePrecision},
		{"-1", 0, e.ErrInvalidPrice},
		{"abc", 0, e.ErrInvalidPrice},
		{"1000000001", 0, e.ErrInvalidPrice},
		{"", 0, e.ErrMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePriceToCents(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "12.50", formatPrice(1250).String())
	assert.Equal(t, "0.99", formatPrice(99).String())
	assert.Equal(t, "0.00", formatPrice(0).String())
}

func TestToHTTPResponse(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
	}{
		{e.Wrap("op", e.ErrNoImageSupplied), http.StatusBadRequest},
		{e.Wrap("op", e.ErrExtractionFailed), http.StatusUnprocessableEntity},
		{e.Wrap("op", e.ErrProductNotFound), http.StatusNotFound},
		{e.ErrProductAlreadyExists, http.StatusConflict},
		{e.ErrUnauthorized, http.StatusUnauthorized},
		{e.ErrForbidden, http.StatusForbidden},
		{e.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{errors.Join(e.ErrFetchFailed, e.ErrFileTooLarge), http.StatusBadGateway},
		{e.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		code, msg := ToHTTPResponse(tt.err)
		assert.Equal(t, tt.wantCode, code, tt.err.Error())
		assert.NotEmpty(t, msg)
	}

	_, msg := ToHTTPResponse(errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", msg)
}
