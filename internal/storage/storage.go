// Package storage persists generated profile series as CSV blobs through a
// pluggable file handler.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
)

// FileHandler writes binary blobs and returns the destination identifier.
type FileHandler interface {
	WriteBlob(path string, payload []byte) (string, error)
}

// LocalFileHandler writes blobs under a base directory on the local filesystem.
type LocalFileHandler struct {
	BasePath string
}

// NewLocalFileHandler creates a filesystem-backed blob writer.
func NewLocalFileHandler(basePath string) *LocalFileHandler {
	return &LocalFileHandler{BasePath: basePath}
}

// WriteBlob persists a blob beneath the base path, creating parent
// directories as needed, and returns the full destination path.
func (h *LocalFileHandler) WriteBlob(path string, payload []byte) (string, error) {
	destination := filepath.Join(h.BasePath, path)
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir for %s: %w", destination, err)
	}
	if err := os.WriteFile(destination, payload, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", destination, err)
	}
	return destination, nil
}

// StoreProfilesAsCSV serializes each profile series to CSV under
// outputSubdir, keyed file names, and returns the stored destinations in
// key order.
func StoreProfilesAsCSV(profiles map[string]*atlite.ProfileSeries, outputSubdir string, handler FileHandler) ([]string, error) {
	keys := make([]string, 0, len(profiles))
	for key := range profiles {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	stored := make([]string, 0, len(keys))
	for _, key := range keys {
		destination, err := handler.WriteBlob(outputSubdir+"/"+key+".csv", seriesCSV(profiles[key]))
		if err != nil {
			return nil, err
		}
		stored = append(stored, destination)
	}
	return stored, nil
}

func seriesCSV(series *atlite.ProfileSeries) []byte {
	var b strings.Builder
	b.WriteString("timestamp,value\n")
	for i, ts := range series.Index {
		b.WriteString(ts)
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(series.Values[i], 'g', -1, 64))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
