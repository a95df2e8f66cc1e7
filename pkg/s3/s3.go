package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"
)

type ItfS3 interface {
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, key string, dest string) error
}

type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type s3Client struct {
	client     s3iface.S3API
	downloader *s3manager.Downloader
	bucketName string
	log        *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) (ItfS3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("model bucket is not configured")
	}

	sess, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	client := s3.New(sess)
	return &s3Client{
		client:     client,
		downloader: s3manager.NewDownloaderWithClient(client),
		bucketName: cfg.Bucket,
		log:        log,
	}, nil
}

func (s *s3Client) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"bucket": s.bucketName,
		"prefix": prefix,
		"count":  len(keys),
	}).Info("Listed model objects")

	return keys, nil
}

// Download writes the object to dest through a temporary file so a partial
// download never sits at the final path.
func (s *s3Client) Download(ctx context.Context, key string, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part*")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	n, err := s.downloader.DownloadWithContext(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"key":   key,
		"bytes": n,
	}).Debug("Downloaded model object")

	return os.Rename(tmp.Name(), dest)
}

func newSession(cfg Config) (*session.Session, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	return session.NewSession(awsCfg)
}
