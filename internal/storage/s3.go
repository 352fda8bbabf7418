package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
)

// objectAPI 是 S3Store 用到的 s3.Client 方法，测试中可以替换
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Options struct {
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	BaseEndpoint  string
	PublicBaseURL string
	Timeout       time.Duration
}

type S3Store struct {
	client        objectAPI
	bucket        string
	publicBaseURL string
	timeout       time.Duration
	now           func() time.Time
}

func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		// MinIO 等兼容存储需要 path-style 访问
		o.UsePathStyle = true
	})

	return newS3Store(client, opts), nil
}

func newS3Store(client objectAPI, opts S3Options) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        opts.Bucket,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		timeout:       opts.Timeout,
		now:           time.Now,
	}
}

// 形如 Job_Seekers_Resume/2025/03/<uuid>.pdf
func (s *S3Store) objectKey(namespace, extension string) string {
	d := s.now()
	return fmt.Sprintf("%s/%d/%02d/%s%s", namespace, d.Year(), d.Month(), uuid.New(), extension)
}

func (s *S3Store) Upload(ctx context.Context, namespace string, content []byte) (*domain.Resume, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("上传内容为空")
	}

	mtype := mimetype.Detect(content)
	key := s.objectKey(namespace, mtype.Extension())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(mtype.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("上传对象 %s 失败: %w", key, err)
	}

	return &domain.Resume{
		PublicID: key,
		URL:      fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key),
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", publicID, err)
	}

	return nil
}
