// Package catalog builds the configured content sources.
package catalog

import (
	"context"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rominator/internal/config"
	"github.com/tanq16/rominator/internal/sources"
	"github.com/tanq16/rominator/internal/sources/feed"
	"github.com/tanq16/rominator/internal/sources/gdrive"
	"github.com/tanq16/rominator/internal/sources/gitrepo"
	"github.com/tanq16/rominator/internal/sources/romspedia"
	"github.com/tanq16/rominator/internal/sources/s3bucket"
	"github.com/tanq16/rominator/internal/utils"
)

const gdriveTokenFile = "gdrive-token.json"

// KnownIDs lists every source id in registration order.
var KnownIDs = []string{romspedia.ID, feed.ID, s3bucket.ID, gitrepo.ID, gdrive.ID}

type Catalog struct {
	Sources []sources.Source
	// S3 is shared with the s3:// transport; nil without an S3 mirror.
	S3 *s3.Client
	// Skipped holds configured sources that could not be built.
	Skipped map[string]error
}

// Registry registers every built source and applies the enabled set.
func (c *Catalog) Registry(enabled []string) *sources.Registry {
	r := sources.NewRegistry(c.Sources...)
	r.SetEnabledSet(enabled)
	return r
}

// Build creates romspedia plus every source with configuration present.
func Build(ctx context.Context, cfg *config.Config, client *utils.RomHTTPClient) *Catalog {
	c := &Catalog{Skipped: make(map[string]error)}
	c.Sources = append(c.Sources, romspedia.New(client))

	sc := cfg.Sources
	if len(sc.Feeds) > 0 {
		c.Sources = append(c.Sources, feed.New(client, sc.Feeds))
	}
	if sc.S3 != nil {
		s3Client, err := s3bucket.NewClient(ctx, sc.S3.Profile, sc.S3.Region)
		if err != nil {
			c.skip(s3bucket.ID, err)
		} else {
			c.S3 = s3Client
			c.Sources = append(c.Sources, s3bucket.New(s3Client, s3bucket.Settings{
				Bucket:  sc.S3.Bucket,
				Prefix:  sc.S3.Prefix,
				Profile: sc.S3.Profile,
				Region:  sc.S3.Region,
			}))
		}
	}
	if sc.Git != nil {
		c.Sources = append(c.Sources, gitrepo.New(gitrepo.Settings{
			URL:     sc.Git.URL,
			RawBase: sc.Git.RawBase,
			Ref:     sc.Git.Ref,
			Token:   sc.Git.Token,
			SSHKey:  sc.Git.SSHKey,
		}))
	}
	if sc.GDrive != nil {
		if src, err := buildGDrive(ctx, cfg, client); err != nil {
			c.skip(gdrive.ID, err)
		} else {
			c.Sources = append(c.Sources, src)
		}
	}
	return c
}

func buildGDrive(ctx context.Context, cfg *config.Config, client *utils.RomHTTPClient) (*gdrive.Source, error) {
	g := cfg.Sources.GDrive
	settings := gdrive.Settings{
		Folders:     g.Folders,
		APIKey:      g.APIKey,
		Credentials: g.Credentials,
		Token:       GDriveTokenPath(cfg),
	}
	if g.Credentials == "" {
		return gdrive.New(client, settings, nil), nil
	}
	ts, err := gdrive.TokenSource(ctx, settings.Credentials, settings.Token)
	if err != nil {
		return nil, err
	}
	return gdrive.New(utils.NewOAuthHTTPClient(client.Config(), ts), settings, ts), nil
}

// GDriveTokenPath is the configured token file or one next to the config.
func GDriveTokenPath(cfg *config.Config) string {
	if g := cfg.Sources.GDrive; g != nil && g.Token != "" {
		return g.Token
	}
	return filepath.Join(filepath.Dir(cfg.Path()), gdriveTokenFile)
}

func (c *Catalog) skip(id string, err error) {
	log.Warn().Str("op", "catalog/build").Err(err).Msgf("source %s disabled", id)
	c.Skipped[id] = err
}
