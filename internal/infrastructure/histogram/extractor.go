// Package histogram строит цветовые гистограммы изображений для поиска похожих товаров.
package histogram

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// Size — сторона квадрата, к которому приводится изображение перед подсчётом.
	Size = 200
	// MaxPixels — предел размера из заголовка (ширина × высота), проверяется до декодирования.
	MaxPixels = 40_000_000
)

// Extractor считает нормированную RGB-гистограмму с Bins корзинами на канал.
type Extractor struct {
	bins int
}

func NewExtractor(bins int) *Extractor {
	if bins <= 0 || bins > 256 {
		bins = domain.DefaultBins
	}

	return &Extractor{bins: bins}
}

func (x *Extractor) Bins() int {
	return x.bins
}

// Extract декодирует изображение и возвращает его гистограмму.
// Любая проблема с входными байтами возвращается как e.ErrExtractionFailed.
func (x *Extractor) Extract(data []byte) (fp domain.Fingerprint, err error) {
	const op = "Extractor.Extract"

	defer func() {
		if r := recover(); r != nil {
			fp = nil
			err = e.Wrap(op, fmt.Errorf("%w: decoder panic: %v", e.ErrExtractionFailed, r))
		}
	}()

	if len(data) == 0 {
		return nil, e.Wrap(op, fmt.Errorf("%w: empty payload", e.ErrExtractionFailed))
	}

	if err := checkDimensions(data); err != nil {
		return nil, e.Wrap(op, err)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrExtractionFailed, err))
	}

	if b := src.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, e.Wrap(op, fmt.Errorf("%w: empty %s image", e.ErrExtractionFailed, format))
	}

	hist, err := x.histogram(normalize(opaque(src)))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return hist, nil
}

// checkDimensions читает только заголовок и отклоняет пустые и слишком большие изображения.
func checkDimensions(data []byte) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", e.ErrExtractionFailed, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty %s image", e.ErrExtractionFailed, format)
	}

	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("%w: %s image %dx%d exceeds %d pixels",
			e.ErrExtractionFailed, format, cfg.Width, cfg.Height, MaxPixels)
	}

	return nil
}

// opaque отбрасывает альфа-канал, сохраняя записанный в пикселе цвет:
// полностью прозрачный красный пиксель остаётся красным, а не чёрным.
func opaque(src image.Image) image.Image {
	switch img := src.(type) {
	case *image.YCbCr, *image.Gray, *image.Gray16, *image.CMYK:
		return src
	case *image.NRGBA:
		dst := &image.NRGBA{
			Pix:    append([]uint8(nil), img.Pix...),
			Stride: img.Stride,
			Rect:   img.Rect,
		}
		for i := 3; i < len(dst.Pix); i += 4 {
			dst.Pix[i] = 0xff
		}
		return dst
	case *image.NRGBA64:
		b := img.Bounds()
		dst := image.NewNRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := img.NRGBA64At(x, y)
				dst.SetNRGBA(x, y, color.NRGBA{R: uint8(c.R >> 8), G: uint8(c.G >> 8), B: uint8(c.B >> 8), A: 0xff})
			}
		}
		return dst
	}

	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			c.A = 0xff
			dst.SetNRGBA(x, y, c)
		}
	}

	return dst
}

// normalize приводит непрозрачное изображение к Size×Size.
func normalize(src image.Image) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return dst
}

func (x *Extractor) histogram(img *image.NRGBA) (domain.Fingerprint, error) {
	bins := x.bins
	counts := make([]uint32, domain.Dimension(bins))

	b := img.Bounds()
	var total uint32
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			r := int(row[i]) * bins / 256
			g := int(row[i+1]) * bins / 256
			bl := int(row[i+2]) * bins / 256
			counts[r*bins*bins+g*bins+bl]++
			total++
		}
	}

	if total == 0 {
		return nil, fmt.Errorf("%w: no pixels", e.ErrExtractionFailed)
	}

	hist := make(domain.Fingerprint, len(counts))
	for i, c := range counts {
		hist[i] = float64(c) / float64(total)
	}

	return hist, nil
}
