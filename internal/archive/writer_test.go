package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriter_RoundTrip(t *testing.T) {
	for _, name := range []string{"backup.tar.xz", "backup.tar.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "backups", name)

			w, err := NewWriter(path, "run-1")
			if err != nil {
				t.Fatalf("NewWriter failed: %v", err)
			}
			if err := w.Add("src/a.go", []byte("package a\n")); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if err := w.Add("b.txt", nil); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if w.Len() != 2 {
				t.Errorf("Len() = %d, want 2", w.Len())
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			var names []string
			err = IterateArchive(path, func(header *tar.Header, _ io.Reader) (bool, error) {
				names = append(names, header.Name)
				return false, nil
			})
			if err != nil {
				t.Fatalf("IterateArchive failed: %v", err)
			}
			if got := strings.Join(names, ","); got != "src/a.go,b.txt,manifest.json" {
				t.Errorf("entries = %s", got)
			}

			m, err := ReadManifest(path)
			if err != nil {
				t.Fatalf("ReadManifest failed: %v", err)
			}
			if m.Version != ManifestVersion || m.RunID != "run-1" || m.CreatedAt == "" {
				t.Errorf("unexpected manifest: %+v", m)
			}
			if strings.Join(m.Files, ",") != "src/a.go,b.txt" {
				t.Errorf("manifest files = %v", m.Files)
			}
		})
	}
}

func TestWriter_RejectsBadNames(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "b.tar.gz"), "")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	defer w.Close()

	for _, name := range []string{"/etc/passwd", "../up.go", ".", ManifestName} {
		if err := w.Add(name, []byte("x")); err == nil {
			t.Errorf("Add(%q) succeeded, want error", name)
		}
	}

	if err := w.Add("a/../a.go", []byte("x")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := w.Add("a.go", []byte("y")); err == nil {
		t.Error("duplicate entry accepted")
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.zip")
	if _, err := NewWriter(path, ""); err == nil {
		t.Fatal("expected error for .zip")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("archive file created for unsupported format")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]string{
		"a.tar.xz": FormatTarXZ,
		"a.tar.gz": FormatTarGZ,
		"a.tgz":    FormatTarGZ,
		"a.tar":    FormatUnknown,
		"a.zip":    FormatUnknown,
	}
	for path, want := range tests {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %q, want %q", path, got, want)
		}
	}
}
