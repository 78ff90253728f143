package minio

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"geovisor-service/internal/config"
)

// MinioClient wraps the MinIO client with geovisor specific functionality
type MinioClient struct {
	client *minio.Client
	config config.MinioConfig
}

// GeometryUploadsBucket keeps a copy of every raw geometry file a user
// imports, so a bad parse can be reproduced later.
const GeometryUploadsBucket = "geometry-uploads"

// NewMinioClient initializes a new MinIO client with the provided configuration
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	endpoint := strings.TrimPrefix(cfg.MinioURL, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	isSecure, err := strconv.ParseBool(cfg.MinioSecure)
	if err != nil {
		log.Printf("Invalid value for MinIO secure flag: %v. Defaulting to false.", err)
		isSecure = false
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: isSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err = minioClient.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}

	mc := &MinioClient{client: minioClient, config: cfg}
	if err := mc.ensureBucket(context.Background(), GeometryUploadsBucket); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", GeometryUploadsBucket, err)
	}

	log.Printf("MinIO client initialized, uploads go to %s", GeometryUploadsBucket)
	return mc, nil
}

func (mc *MinioClient) ensureBucket(ctx context.Context, bucketName string) error {
	exists, err := mc.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		err := mc.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{
			Region: mc.config.MinioLocation,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", bucketName, err)
		}
		log.Printf("Created bucket: %s", bucketName)
	}
	return nil
}

// Store archives a raw geometry upload under a unique object name.
// Implements the ingest.Archiver contract.
func (mc *MinioClient) Store(ctx context.Context, filename string, data []byte) error {
	objectName := fmt.Sprintf("%s/%s_%s", time.Now().Format("2006-01-02"), uuid.New().String(), filename)

	_, err := mc.client.PutObject(ctx, GeometryUploadsBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", filename, err)
	}
	return nil
}
