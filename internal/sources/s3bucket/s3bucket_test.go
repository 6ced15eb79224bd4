package s3bucket

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/rominator/internal/sources"
)

// fakeLister serves keys two per page.
type fakeLister struct {
	keys     []string
	prefixes []string
	err      error
}

func (f *fakeLister) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.prefixes = append(f.prefixes, aws.ToString(in.Prefix))
	var matching []string
	for _, k := range f.keys {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			matching = append(matching, k)
		}
	}
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range matching {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := min(start+2, len(matching))
	out := &s3.ListObjectsV2Output{}
	for _, k := range matching[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(10)})
	}
	if end < len(matching) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(matching[end])
	}
	return out, nil
}

var mirror = []string{
	"roms/gba/",
	"roms/gba/Mario Kart Super Circuit.zip",
	"roms/gba/hacks/Mario Kart Deluxe.zip",
	"roms/snes/Super Mario Kart.sfc",
	"roms/snes/Zelda.sfc",
	"roms/misc/readme-notes.txt",
}

func TestSearch(t *testing.T) {
	lister := &fakeLister{keys: mirror}
	s := New(lister, Settings{Bucket: "mirror", Prefix: "/roms/"})

	var batches [][]sources.SearchResult
	require.NoError(t, s.Search(t.Context(), sources.SearchRequest{Query: "mario kart"}, func(b []sources.SearchResult) {
		batches = append(batches, b)
	}))
	var all []sources.SearchResult
	for _, b := range batches {
		all = append(all, b...)
	}
	assert.Greater(t, len(batches), 1)
	require.Len(t, all, 3)

	assert.Equal(t, "s3:mirror/roms/gba/Mario Kart Super Circuit.zip", all[0].ID)
	assert.Equal(t, "Mario Kart Super Circuit", all[0].Name)
	assert.Equal(t, "gba", all[0].Platform)
	assert.Empty(t, all[0].Tags)

	assert.Equal(t, []string{"hacks"}, all[1].Tags)
	assert.Equal(t, "snes", all[2].Platform)
	assert.Equal(t, []string{"roms/"}, lister.prefixes[:1])
}

func TestSearchUnknownPlatformFolder(t *testing.T) {
	s := New(&fakeLister{keys: mirror}, Settings{Bucket: "mirror", Prefix: "roms"})
	var all []sources.SearchResult
	require.NoError(t, s.Search(t.Context(), sources.SearchRequest{Query: "notes"}, func(b []sources.SearchResult) {
		all = append(all, b...)
	}))
	require.Len(t, all, 1)
	assert.Empty(t, all[0].Platform)
}

func TestSearchListsPlatformFolders(t *testing.T) {
	lister := &fakeLister{keys: mirror}
	s := New(lister, Settings{Bucket: "mirror", Prefix: "roms"})
	var all []sources.SearchResult
	require.NoError(t, s.Search(t.Context(), sources.SearchRequest{Query: "mario", Platforms: []string{"snes"}}, func(b []sources.SearchResult) {
		all = append(all, b...)
	}))
	require.Len(t, all, 1)
	assert.Equal(t, []string{"roms/snes/"}, lister.prefixes)
}

func TestSearchError(t *testing.T) {
	s := New(&fakeLister{err: errors.New("access denied")}, Settings{Bucket: "mirror"})
	err := s.Search(t.Context(), sources.SearchRequest{Query: "x"}, func([]sources.SearchResult) {})
	assert.ErrorContains(t, err, "access denied")
}

func TestResolveDownload(t *testing.T) {
	s := New(&fakeLister{}, Settings{Bucket: "mirror"})
	info, err := s.ResolveDownload(t.Context(), sources.SearchResult{Extra: map[string]string{"key": "roms/snes/Zelda.sfc"}})
	require.NoError(t, err)
	assert.Equal(t, "s3://mirror/roms/snes/Zelda.sfc", info.URL)
	assert.Equal(t, "Zelda.sfc", info.Filename)

	info, err = s.ResolveDownload(t.Context(), sources.SearchResult{})
	require.NoError(t, err)
	assert.Nil(t, info)
}
