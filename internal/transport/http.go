package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rominator/internal/utils"
)

// HTTPFetcher performs a single GET per job. Failed transfers are not retried
// and partial files are discarded.
type HTTPFetcher struct {
	client utils.HTTPDoer
}

func NewHTTPFetcher(client utils.HTTPDoer) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req Request, outputPath string, progress func(downloaded, total int64)) (string, error) {
	outFile, tempPath, err := createTemp(outputPath, req.JobID)
	if err != nil {
		return "", err
	}
	err = f.downloadAttempt(ctx, req, outFile, progress)
	if closeErr := outFile.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("error closing output file: %v", closeErr)
	}
	if err != nil {
		os.Remove(tempPath)
		return "", err
	}
	finalPath, err := finalize(tempPath, outputPath)
	if err != nil {
		return "", err
	}
	log.Info().Str("op", "transport/http").Msgf("download successful for %s", finalPath)
	return finalPath, nil
}

func (f *HTTPFetcher) downloadAttempt(ctx context.Context, req Request, outFile *os.File, progress func(downloaded, total int64)) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("error creating GET request: %v", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error executing GET request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	total := resp.ContentLength
	var downloaded int64
	buffer := make([]byte, utils.DefaultBufferSize)
	for {
		bytesRead, readErr := resp.Body.Read(buffer)
		if bytesRead > 0 {
			if _, writeErr := outFile.Write(buffer[:bytesRead]); writeErr != nil {
				return fmt.Errorf("error writing to output file: %v", writeErr)
			}
			downloaded += int64(bytesRead)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return fmt.Errorf("error reading response body: %v", readErr)
		}
	}
	if total > 0 && downloaded != total {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", total, downloaded)
	}
	return outFile.Sync()
}
