package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Writer writes a compressed backup archive. Files are added one at a time
// as they are about to be overwritten; Close appends the manifest.
type Writer struct {
	tw         *tar.Writer
	compressor io.WriteCloser
	file       *os.File
	manifest   Manifest
	seen       map[string]bool
	now        time.Time
}

// NewWriter creates the archive at path, compressing with xz for .tar.xz
// and gzip for .tar.gz or .tgz. Parent directories are created as needed.
func NewWriter(path, runID string) (*Writer, error) {
	format := DetectFormat(path)
	if format != FormatTarXZ && format != FormatTarGZ {
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	var compressor io.WriteCloser
	if format == FormatTarXZ {
		xzw, err := xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		compressor = xzw
	} else {
		compressor = gzip.NewWriter(f)
	}

	now := time.Now().UTC()
	return &Writer{
		tw:         tar.NewWriter(compressor),
		compressor: compressor,
		file:       f,
		manifest:   Manifest{Version: ManifestVersion, RunID: runID, CreatedAt: now.Format(time.RFC3339)},
		seen:       make(map[string]bool),
		now:        now,
	}, nil
}

// Add stores content under name. Names are stored with forward slashes and
// must be relative; each name may be added once.
func (w *Writer) Add(name string, content []byte) error {
	entry, err := entryName(name)
	if err != nil {
		return err
	}
	if w.seen[entry] {
		return fmt.Errorf("duplicate archive entry: %s", entry)
	}

	header := &tar.Header{
		Name:    entry,
		Mode:    0644,
		Size:    int64(len(content)),
		ModTime: w.now,
	}
	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %s: %w", entry, err)
	}
	if _, err := w.tw.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", entry, err)
	}

	w.seen[entry] = true
	w.manifest.Files = append(w.manifest.Files, entry)
	return nil
}

// Len returns the number of files added so far.
func (w *Writer) Len() int {
	return len(w.manifest.Files)
}

// Close writes the manifest and flushes every layer of the archive.
func (w *Writer) Close() error {
	data, err := json.MarshalIndent(w.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	var errs []error
	if err := w.tw.WriteHeader(&tar.Header{Name: ManifestName, Mode: 0644, Size: int64(len(data)), ModTime: w.now}); err != nil {
		errs = append(errs, err)
	} else if _, err := w.tw.Write(data); err != nil {
		errs = append(errs, err)
	}
	if err := w.tw.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := w.compressor.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func entryName(name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry must be relative: %s", name)
	}
	entry := filepath.ToSlash(filepath.Clean(name))
	if entry == "." || entry == ".." || strings.HasPrefix(entry, "../") {
		return "", fmt.Errorf("archive entry escapes the archive root: %s", name)
	}
	if entry == ManifestName {
		return "", fmt.Errorf("archive entry name is reserved: %s", name)
	}
	return entry, nil
}
