package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotConfigured 未配置对象存储
var ErrNotConfigured = errors.New("storage not configured")

// Config 对象存储配置
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// EvidenceStore 证据文件存储；核心只记录对象键与文件名
type EvidenceStore struct {
	client *minio.Client
	bucket string
}

// NewEvidenceStore 创建存储；Endpoint 为空时返回未配置的存储
func NewEvidenceStore(cfg Config) (*EvidenceStore, error) {
	if cfg.Endpoint == "" {
		return &EvidenceStore{bucket: cfg.Bucket}, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &EvidenceStore{client: client, bucket: cfg.Bucket}, nil
}

// Configured 是否已配置对象存储
func (s *EvidenceStore) Configured() bool {
	return s != nil && s.client != nil
}

// EnsureBucket 启动时确保存储桶存在
func (s *EvidenceStore) EnsureBucket(ctx context.Context) error {
	if !s.Configured() {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

// ObjectName 证据对象键：evidence/<request>/2006/01/02/<uuid8><ext>
func ObjectName(requestID, fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("evidence/%s/%s/%s%s", requestID, now.Format("2006/01/02"), uuid.New().String()[:8], ext)
}

// Put 上传证据文件，返回对象键
func (s *EvidenceStore) Put(ctx context.Context, requestID, fileName string, reader io.Reader, size int64, contentType string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	objectName := ObjectName(requestID, fileName, time.Now())
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload evidence: %w", err)
	}
	return objectName, nil
}

// Get 读取证据文件
func (s *EvidenceStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return object, nil
}

// Remove 删除证据文件
func (s *EvidenceStore) Remove(ctx context.Context, key string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// PresignedURL 生成临时下载地址
func (s *EvidenceStore) PresignedURL(ctx context.Context, key, fileName string, expiry time.Duration) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}
