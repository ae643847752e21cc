package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// S3Scheme — схема ссылок на объекты MinIO, которые пишутся в products.image_ref.
const S3Scheme = "s3"

// Image описывает изображение, которое загружается в S3
type Image struct {
	ID          string // uuid
	Bucket      string
	ObjectKey   string
	Bytes       []byte
	Size        int64
	ContentType string // Example: "image/jpeg"
}

func NewImage(id string, bucket string, objectKey string, data []byte, contentType string) *Image {
	return &Image{
		ID:          id,
		Bucket:      bucket,
		ObjectKey:   objectKey,
		Bytes:       data,
		Size:        int64(len(data)),
		ContentType: contentType,
	}
}

// Ref возвращает ссылку вида s3://bucket/key.
func (i *Image) Ref() string {
	return fmt.Sprintf("%s://%s/%s", S3Scheme, i.Bucket, i.ObjectKey)
}

// ObjectLocator — разобранная ссылка s3://bucket/key.
type ObjectLocator struct {
	Bucket string
	Key    string
}

// ParseObjectLocator разбирает ссылку на объект MinIO. ok=false, если ссылка другой схемы или неполная.
func ParseObjectLocator(ref string) (ObjectLocator, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != S3Scheme || u.Host == "" {
		return ObjectLocator{}, false
	}

	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return ObjectLocator{}, false
	}

	return ObjectLocator{Bucket: u.Host, Key: key}, true
}
