// utils/badge_icons.go
package utils

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var r2Client *s3.Client
var r2Presigner *s3.PresignClient
var r2Bucket string

const badgeIconURLTTL = 15 * time.Minute

// InitR2 configures the Cloudflare R2 client that serves badge icon assets.
// Badge art is static; this service only ever presigns reads.
func InitR2() error {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")
	r2Bucket = os.Getenv("R2_BUCKET_NAME")

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load R2 config: %w", err)
	}

	r2Client = s3.NewFromConfig(cfg)
	r2Presigner = s3.NewPresignClient(r2Client)
	return nil
}

// BadgeIconURL returns a time-limited URL for a badge icon object key.
// Returns "" for empty keys or before InitR2, so callers can ship badge
// metadata without icons rather than fail the request.
func BadgeIconURL(ctx context.Context, key string) string {
	if key == "" || r2Presigner == nil {
		return ""
	}

	req, err := r2Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r2Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(badgeIconURLTTL))
	if err != nil {
		return ""
	}
	return req.URL
}
