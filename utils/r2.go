// utils/r2.go
package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PhotoURLTTL is how long a presigned item photo URL stays valid.
const PhotoURLTTL = 15 * time.Minute

type R2Settings struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// R2Signer presigns GET URLs for item photos stored in a private bucket.
type R2Signer struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

func NewR2Signer(ctx context.Context, s R2Settings) (*R2Signer, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AccessKeyID, s.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.AccountID))
		o.UsePathStyle = true
	})
	return &R2Signer{
		presign: s3.NewPresignClient(client),
		bucket:  s.Bucket,
		ttl:     PhotoURLTTL,
	}, nil
}

// PresignItemPhoto returns a time-limited GET URL for the object key.
func (r *R2Signer) PresignItemPhoto(ctx context.Context, key string) (string, error) {
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}
