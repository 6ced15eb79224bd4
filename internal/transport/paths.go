package transport

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tanq16/rominator/internal/utils"
)

func outputPathFor(req Request) string {
	return filepath.Join(req.Directory, utils.SanitizeFilename(req.Filename))
}

// tempPathFor names the partial file of one job. The job id keeps two jobs
// with the same filename in one directory apart.
func tempPathFor(outputPath, jobID string) string {
	tempDir := filepath.Join(filepath.Dir(outputPath), utils.TempDirName)
	name := filepath.Base(outputPath)
	if jobID != "" {
		name += "." + utils.SanitizeFilename(jobID)
	}
	return filepath.Join(tempDir, name+".part")
}

// createTemp creates the partial file for a job. The shared temp directory
// may be removed by another job finishing in between, so creation is retried.
func createTemp(outputPath, jobID string) (*os.File, string, error) {
	tempPath := tempPathFor(outputPath, jobID)
	var lastErr error
	for range 3 {
		if err := os.MkdirAll(filepath.Dir(tempPath), 0755); err != nil {
			return nil, "", fmt.Errorf("error creating temp directory: %v", err)
		}
		file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err == nil {
			return file, tempPath, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("error creating output file: %v", err)
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("error creating output file: %v", lastErr)
}

// finalize moves the finished temp file onto a freshly reserved output path
// and returns the path it ended up at. Existing files are never replaced.
func finalize(tempPath, outputPath string) (string, error) {
	finalPath, err := utils.ReserveOutputPath(outputPath)
	if err != nil {
		os.Remove(tempPath)
		return "", err
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(finalPath)
		os.Remove(tempPath)
		return "", fmt.Errorf("error renaming (finalizing) output file: %v", err)
	}
	os.Remove(filepath.Dir(tempPath)) // only succeeds once empty
	return finalPath, nil
}
