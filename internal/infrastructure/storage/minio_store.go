package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig описує підключення до об'єктного сховища
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix додається до кожного ключа, наприклад "missions/"
	Prefix string
}

// MinIOStore зберігає кожен ключ окремим об'єктом у бакеті MinIO
type MinIOStore struct {
	minioClient *minio.Client
	bucketName  string
	prefix      string
}

// NewMinIOStore створює новий екземпляр MinIOStore і за потреби створює бакет
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	// Ініціалізація MinIO клієнта
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	// Перевірка наявності бакета і створення його, якщо не існує
	exists, err := minioClient.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = minioClient.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStore{
		minioClient: minioClient,
		bucketName:  cfg.Bucket,
		prefix:      cfg.Prefix,
	}, nil
}

// objectKey будує ім'я об'єкта для ключа
func (s *MinIOStore) objectKey(key string) string {
	return path.Join(s.prefix, key+".json")
}

func (s *MinIOStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := s.minioClient.GetObject(ctx, s.bucketName, s.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read object: %w", err)
	}
	return data, true, nil
}

func (s *MinIOStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.minioClient.PutObject(ctx, s.bucketName, s.objectKey(key), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"store-key":    key,
			"created-time": time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to save object: %w", err)
	}
	return nil
}

// Close нічого не робить: клієнт MinIO не тримає постійних з'єднань
func (s *MinIOStore) Close() error {
	return nil
}
