// Package download fetches and unpacks speech-recognition model archives.
package download

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

// Downloader fetches Vosk model ZIP archives and extracts them under a
// models directory.
type Downloader struct {
	modelsDir string
	client    *http.Client
}

// NewDownloader creates a Downloader rooted at modelsDir.
func NewDownloader(modelsDir string) *Downloader {
	return &Downloader{
		modelsDir: modelsDir,
		client:    &http.Client{},
	}
}

// EnsureModel makes the recognition model for the given language available on
// disk. Already-extracted models are left untouched. Downloads happen in the
// background of user registration, so a failure is returned rather than fatal.
func (d *Downloader) EnsureModel(ctx context.Context, setting models.LanguageSetting) error {
	target := filepath.Join(d.modelsDir, setting.ModelPath)
	if dirNonEmpty(target) {
		slog.Debug("Downloader.EnsureModel: model already present", "path", target)
		return nil
	}

	if err := os.MkdirAll(d.modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	zipPath := filepath.Join(d.modelsDir, setting.ModelZipName)
	slog.Info("Downloader.EnsureModel: downloading model", "url", setting.ModelURL)
	if err := d.fetch(ctx, setting.ModelURL, zipPath); err != nil {
		return err
	}
	defer os.Remove(zipPath)

	if err := extractZip(zipPath, d.modelsDir); err != nil {
		return fmt.Errorf("failed to extract %s: %w", setting.ModelZipName, err)
	}
	if !dirNonEmpty(target) {
		return fmt.Errorf("archive did not contain model directory %s", setting.ModelPath)
	}
	slog.Info("Downloader.EnsureModel: model ready", "path", target)
	return nil
}

func (d *Downloader) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

// extractZip unpacks the archive into destDir. Entry paths are validated so a
// crafted archive cannot write outside destDir.
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, entry := range r.File {
		dest := filepath.Join(destDir, entry.Name)
		if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", entry.Name)
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		if err := writeEntry(entry, dest); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

func dirNonEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
