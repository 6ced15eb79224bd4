package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeFilenameRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-\.\(\)\[\]\, ]+`)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

// ReserveOutputPath claims outputPath, or the first free "name-(N).ext"
// beside it, by creating an empty placeholder with O_EXCL. Concurrent callers
// never receive the same path; the caller renames its data over the
// placeholder.
func ReserveOutputPath(outputPath string) (string, error) {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	candidate := outputPath
	for index := 1; ; index++ {
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("error reserving output path: %v", err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
	}
}

// SanitizeFilename keeps a single path element safe to create on every OS.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	name = unsafeFilenameRegex.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." || name == "/" {
		return "download"
	}
	return name
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// CleanTree walks root and removes every temp directory found below it.
func CleanTree(root string) (int, error) {
	var removed []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == TempDirName {
			removed = append(removed, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	for _, dir := range removed {
		if err := os.RemoveAll(dir); err != nil {
			return 0, err
		}
	}
	return len(removed), nil
}
