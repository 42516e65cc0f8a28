package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/common"
	sc "github.com/dmitrijs2005/dtodo/internal/server/config"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const exportLinkValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Export describes an uploaded snapshot.
type Export struct {
	ObjectKey string
	URL       string
	Count     int
	ExpiresAt time.Time
}

type exportDocument struct {
	Owner      string         `json:"owner"`
	ExportedAt time.Time      `json:"exported_at"`
	Tasks      []*models.Task `json:"tasks"`
}

// ExportService writes JSON snapshots of a user's tasks to S3 compatible
// storage and hands out presigned download links.
type ExportService struct {
	tasks  *TaskService
	config *sc.Config
}

func NewExportService(tasks *TaskService, config *sc.Config) *ExportService {
	return &ExportService{tasks: tasks, config: config}
}

func (s *ExportService) Enabled() bool {
	return s.config.ExportEnabled()
}

// ExportObjectKey lays exports out per owner and day.
func ExportObjectKey(identityKey string, at time.Time) string {
	return fmt.Sprintf("exports/%s/%04d/%02d/%02d/%s.json", identityKey, at.Year(), at.Month(), at.Day(), uuid.New())
}

func (s *ExportService) getClients(ctx context.Context) (*s3.Client, *s3.PresignClient, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.config.S3Region)}
	if s.config.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			// minio and friends only speak path-style addressing
			o.UsePathStyle = true
		}
	})

	return client, newS3PresignClient(client), nil
}

// Export uploads the caller's tasks and returns a link valid for 15 minutes.
func (s *ExportService) Export(ctx context.Context, identityKey string) (*Export, error) {
	if !s.Enabled() {
		return nil, common.ErrExportDisabled
	}

	key, err := s.tasks.scheme.Normalize(identityKey)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.List(ctx, key)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	body, err := json.Marshal(exportDocument{Owner: key, ExportedAt: now, Tasks: tasks})
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	client, presigner, err := s.getClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	objectKey := ExportObjectKey(key, now)

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &objectKey,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}

	req, err := presignGetObject(presigner, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &objectKey,
	}, s3.WithPresignExpires(exportLinkValidity))
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}

	return &Export{
		ObjectKey: objectKey,
		URL:       req.URL,
		Count:     len(tasks),
		ExpiresAt: now.Add(exportLinkValidity),
	}, nil
}
