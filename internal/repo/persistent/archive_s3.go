package persistent

import (
	"bytes"
	"context"
	"fmt"

	"github.com/andrsolo/Request-Relay/pkg/s3client"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveRepo writes purged request histories to S3-compatible storage so
// retention cleanup never loses the audit trail.
type ArchiveRepo struct {
	*s3client.S3Client
	bucket string
}

func NewArchiveRepo(s3c *s3client.S3Client, bucket string) *ArchiveRepo {
	return &ArchiveRepo{s3c, bucket}
}

func (r *ArchiveRepo) Store(ctx context.Context, key string, data []byte) error {
	_, err := r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("ArchiveRepo - Store - r.Client.PutObject: %w", err)
	}

	return nil
}
