package kaggle

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/burqi/orderflow/internal/pipeline"
)

// Fetcher downloads a dataset archive and expands it into plain files.
type Fetcher struct {
	client *Client
}

// NewFetcher creates a Fetcher over the given client.
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads the dataset archive into destDir, expands it in place,
// removes the archive, and returns the paths of the expanded files.
func (f *Fetcher) Fetch(ctx context.Context, dataset, destDir string) ([]string, error) {
	archivePath, err := f.client.DownloadArchive(ctx, dataset, destDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(archivePath)

	files, err := expandArchive(archivePath, destDir)
	if err != nil {
		return nil, &pipeline.FetchError{
			Code:    pipeline.CodeArchiveCorrupt,
			Dataset: dataset,
			Err:     err,
		}
	}
	if len(files) == 0 {
		return nil, &pipeline.FetchError{
			Code:    pipeline.CodeArchiveCorrupt,
			Dataset: dataset,
			Err:     fmt.Errorf("archive contains no files"),
		}
	}

	return files, nil
}

// expandArchive extracts a zip archive into destDir and returns the
// extracted file paths. Entries escaping destDir are rejected.
func expandArchive(archivePath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	var files []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		target := filepath.Join(destDir, filepath.Clean(entry.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive entry escapes destination: %s", entry.Name)
		}

		if err := extractEntry(entry, target); err != nil {
			return nil, err
		}
		files = append(files, target)
	}

	return files, nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create entry dir: %w", err)
	}

	in, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return out.Close()
}
