package transport

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3API is the part of the S3 client the fetcher needs.
type S3API interface {
	manager.DownloadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Fetcher downloads s3://bucket/key locations resolved by the S3 mirror
// source.
type S3Fetcher struct {
	client      S3API
	concurrency int
}

func NewS3Fetcher(client S3API) *S3Fetcher {
	return &S3Fetcher{client: client, concurrency: manager.DefaultDownloadConcurrency}
}

func (f *S3Fetcher) Fetch(ctx context.Context, req Request, outputPath string, progress func(downloaded, total int64)) (string, error) {
	bucket, key, err := ParseS3URL(req.URL)
	if err != nil {
		return "", err
	}
	total := int64(-1)
	head, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("error getting object info: %v", err)
	}
	if head.ContentLength != nil {
		total = *head.ContentLength
	}

	file, tempPath, err := createTemp(outputPath, req.JobID)
	if err != nil {
		return "", err
	}
	writer := &progressWriterAt{w: file, total: total, progress: progress}
	downloader := manager.NewDownloader(f.client, func(d *manager.Downloader) {
		d.Concurrency = f.concurrency
	})
	_, err = downloader.Download(ctx, writer, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("error downloading s3://%s/%s: %v", bucket, key, err)
	}
	log.Debug().Str("op", "transport/s3").Msgf("downloaded s3://%s/%s", bucket, key)
	return finalize(tempPath, outputPath)
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(raw string) (string, string, error) {
	trimmed := strings.TrimPrefix(raw, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URL format: %s", raw)
	}
	return parts[0], parts[1], nil
}

type progressWriterAt struct {
	w        *os.File
	written  atomic.Int64
	total    int64
	progress func(downloaded, total int64)
}

func (p *progressWriterAt) WriteAt(b []byte, off int64) (int, error) {
	n, err := p.w.WriteAt(b, off)
	if n > 0 && p.progress != nil {
		p.progress(p.written.Add(int64(n)), p.total)
	}
	return n, err
}
