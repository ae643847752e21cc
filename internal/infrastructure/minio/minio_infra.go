package minio

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/cfg"
	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/infrastructure"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/jitter"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/google/uuid"
)

const (
	cleanupTimeout     = 30 * time.Second
	cleanupBaseBackoff = time.Second
	cleanupMaxBackoff  = 8 * time.Second
)

// MinioInfrastructure управляет загрузкой и очисткой изображений товаров в MinIO.
type MinioInfrastructure struct {
	minioRepo       usecase.ImageRepository
	bucket          string
	cleanupAttempts int
	baseBackoff     time.Duration
	logger          logger.Logger
	shutdownCtx     context.Context
	wg              sync.WaitGroup
}

func NewMinioInfrastructure(minioRepo usecase.ImageRepository, cfg *cfg.MinIOCfg, logger logger.Logger, shutdownCtx context.Context) *MinioInfrastructure {
	return &MinioInfrastructure{
		minioRepo:       minioRepo,
		bucket:          cfg.BucketName,
		cleanupAttempts: max(cfg.CleanupAttempts, 1),
		baseBackoff:     cleanupBaseBackoff,
		logger:          logger,
		shutdownCtx:     shutdownCtx,
	}
}

// UploadImage загружает изображение товара и возвращает ключ объекта и ссылку s3://bucket/key.
func (m *MinioInfrastructure) UploadImage(ctx context.Context, req *usecase.UploadImageReq) (*usecase.UploadImageRes, error) {
	const op = "MinioInfrastructure.UploadImage"

	ext, err := infrastructure.GetExtensionFromMIME(req.Image.MimeType)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("mime type %q of %s: %w", req.Image.MimeType, req.Image.Name, err))
	}

	imageID := uuid.NewString()
	objKey := path.Join(objectPrefix(req.ProductName), fmt.Sprintf("%s.%s", imageID, ext))
	image := domain.NewImage(imageID, m.bucket, objKey, req.Image.Data, req.Image.MimeType)

	key, err := m.minioRepo.Upload(ctx, image)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	image.ObjectKey = key

	return usecase.NewUploadImageRes(key, image.Ref()), nil
}

// CleanupImages запускает фоновую очистку указанных ключей MinIO
func (m *MinioInfrastructure) CleanupImages(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.wg.Add(1)
	go m.cleanupUploadedKeys(keys)
}

// cleanupUploadedKeys удаляет объекты с экспоненциальной задержкой и jitter между попытками.
func (m *MinioInfrastructure) cleanupUploadedKeys(keys []string) {
	defer m.wg.Done()
	const op = "MinioInfrastructure.cleanupUploadedKeys"

	ctx, cancel := context.WithTimeout(m.shutdownCtx, cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		for attempt := 0; attempt < m.cleanupAttempts; attempt++ {
			err := m.minioRepo.Delete(ctx, key)
			if err == nil {
				m.logger.Infof("%s: removed orphaned object %s", op, key)
				break
			}

			if attempt == m.cleanupAttempts-1 {
				m.logger.Errorf(err, "%s: giving up on key=%s after %d attempts", op, key, m.cleanupAttempts)
				break
			}

			select {
			case <-time.After(jitter.ExponentialBackoff(m.baseBackoff, cleanupMaxBackoff, attempt, jitter.DefaultJitter)):
			case <-ctx.Done():
				m.logger.Warnf("cleanup interrupted by shutdown, key=%v", key)
				return
			}
		}
	}
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *MinioInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}

// objectPrefix превращает название товара в префикс ключа: нижний регистр, пробелы и слэши заменены на '-'.
func objectPrefix(productName string) string {
	prefix := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', '\t':
			return '-'
		}
		return r
	}, strings.ToLower(strings.TrimSpace(productName)))

	if prefix == "" {
		return "products"
	}
	return prefix
}
