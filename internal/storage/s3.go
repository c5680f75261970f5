package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the client used by S3Provider.
type S3Options struct {
	Region    string
	Endpoint  string
	PathStyle bool
	AccessKey string
	SecretKey string
}

// NewS3Client builds a client from static options. Without keys requests
// go out unsigned, which only suits public buckets and signing proxies.
func NewS3Client(o S3Options) *s3.Client {
	return s3.New(s3.Options{
		Region:       o.Region,
		UsePathStyle: o.PathStyle,
		BaseEndpoint: optional(o.Endpoint),
		Credentials:  staticCredentials(o.AccessKey, o.SecretKey),
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

func staticCredentials(key, secret string) aws.CredentialsProvider {
	if key == "" || secret == "" {
		return nil
	}
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{AccessKeyID: key, SecretAccessKey: secret, Source: "qms-exporter"}, nil
	})
}

type S3Provider struct {
	client *s3.Client
	bucket string
}

func NewS3Provider(client *s3.Client, bucket string) *S3Provider {
	return &S3Provider{
		client: client,
		bucket: bucket,
	}
}

func (p *S3Provider) StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error) {
	reader, writer := io.Pipe()
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)

		uploader := manager.NewUploader(p.client, func(u *manager.Uploader) {
			u.PartSize = 5 * 1024 * 1024 // documents are small, one part is the common case
			u.Concurrency = 2
		})

		slog.Info("Starting S3 upload", "key", key)
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        reader,
			ContentType: aws.String(ContentType(key)),
		})

		_ = reader.CloseWithError(err)

		if err != nil {
			slog.Error("S3 Upload failed", "error", err)
			errChan <- fmt.Errorf("s3 upload failed: %w", err)
		} else {
			slog.Info("S3 Upload finished successfully", "key", key)
			errChan <- nil
		}
	}()

	return writer, errChan
}

func (p *S3Provider) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (p *S3Provider) GetDownloadURL(key string) string {
	return fmt.Sprintf("s3://%s/%s", p.bucket, key)
}
