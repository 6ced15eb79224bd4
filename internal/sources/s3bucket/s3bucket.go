// Package s3bucket searches a ROM mirror kept in an S3 bucket laid out as
// <prefix>/<platform>/<file>.
package s3bucket

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rominator/internal/platforms"
	"github.com/tanq16/rominator/internal/sources"
)

const ID = "s3"

type Settings struct {
	Bucket  string
	Prefix  string
	Profile string
	Region  string
}

// NewClient loads the shared AWS configuration for profile. An empty profile
// falls back to AWS_PROFILE and then "default".
func NewClient(ctx context.Context, profile, region string) (*s3.Client, error) {
	if profile == "" {
		profile = os.Getenv("AWS_PROFILE")
	}
	if profile == "" {
		profile = "default"
	}
	opts := []func(*config.LoadOptions) error{
		config.WithSharedConfigProfile(profile),
		config.WithRetryMode("adaptive"),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %v", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.DisableLogOutputChecksumValidationSkipped = true
	}), nil
}

type Source struct {
	client s3.ListObjectsV2APIClient
	bucket string
	prefix string
}

func New(client s3.ListObjectsV2APIClient, settings Settings) *Source {
	prefix := strings.Trim(settings.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Source{client: client, bucket: settings.Bucket, prefix: prefix}
}

func (s *Source) ID() string          { return ID }
func (s *Source) Name() string        { return "S3 Mirror (" + s.bucket + ")" }
func (s *Source) Icon() string        { return "" }
func (s *Source) Platforms() []string { return nil }

// Search lists the platform folders and emits one batch per listing page.
func (s *Source) Search(ctx context.Context, req sources.SearchRequest, emit func([]sources.SearchResult)) error {
	keywords := strings.Fields(strings.ToLower(req.Query))
	if len(keywords) == 0 {
		return nil
	}
	prefixes := []string{s.prefix}
	if len(req.Platforms) > 0 {
		prefixes = prefixes[:0]
		for _, p := range req.Platforms {
			prefixes = append(prefixes, s.prefix+p+"/")
		}
	}
	for _, prefix := range prefixes {
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("error listing objects: %v", err)
			}
			var batch []sources.SearchResult
			for _, obj := range page.Contents {
				if obj.Key == nil {
					continue
				}
				if r, ok := s.match(*obj.Key, keywords); ok {
					batch = append(batch, r)
				}
			}
			if len(batch) > 0 {
				emit(batch)
			}
		}
	}
	log.Debug().Str("op", "s3bucket/search").Msgf("listed s3://%s/%s", s.bucket, s.prefix)
	return nil
}

func (s *Source) ResolveDownload(_ context.Context, result sources.SearchResult) (*sources.DownloadInfo, error) {
	key := result.Extra["key"]
	if key == "" {
		return nil, nil
	}
	return &sources.DownloadInfo{
		URL:      "s3://" + s.bucket + "/" + key,
		Filename: path.Base(key),
	}, nil
}

// match accepts keys of the form <prefix><platform>/.../<file> whose file name
// contains every keyword.
func (s *Source) match(key string, keywords []string) (sources.SearchResult, bool) {
	if strings.HasSuffix(key, "/") {
		return sources.SearchResult{}, false
	}
	rel := strings.TrimPrefix(key, s.prefix)
	platform, rest, ok := strings.Cut(rel, "/")
	if !ok || rest == "" {
		return sources.SearchResult{}, false
	}
	file := path.Base(rest)
	lower := strings.ToLower(file)
	for _, k := range keywords {
		if !strings.Contains(lower, k) {
			return sources.SearchResult{}, false
		}
	}
	name := strings.TrimSuffix(file, path.Ext(file))
	r := sources.SearchResult{
		ID:       ID + ":" + s.bucket + "/" + key,
		SourceID: ID,
		Name:     name,
		Extra:    map[string]string{"key": key},
	}
	if platforms.Known(platform) {
		r.Platform = platform
	}
	if dir := path.Dir(rest); dir != "." {
		for _, t := range strings.Split(dir, "/") {
			r.Tags = append(r.Tags, strings.ToLower(t))
		}
	}
	return r, true
}
