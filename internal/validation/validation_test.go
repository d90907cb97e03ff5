package validation

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	baseDir := "/tmp/test"

	tests := []struct {
		name      string
		userPath  string
		want      string
		wantError error
	}{
		{
			name:     "simple valid path",
			userPath: "file.go",
			want:     "file.go",
		},
		{
			name:     "nested valid path",
			userPath: "pkg/file.go",
			want:     filepath.Join("pkg", "file.go"),
		},
		{
			name:     "redundant separators",
			userPath: "pkg//file.go",
			want:     filepath.Join("pkg", "file.go"),
		},
		{
			name:     "dot component",
			userPath: "./file.go",
			want:     "file.go",
		},
		{
			name:     "dotdot inside name is fine",
			userPath: "pkg/..file.go",
			want:     filepath.Join("pkg", "..file.go"),
		},
		{
			name:      "path traversal with dotdot",
			userPath:  "../etc/passwd",
			wantError: ErrPathTraversal,
		},
		{
			name:      "path traversal in middle",
			userPath:  "pkg/../../etc/passwd",
			wantError: ErrPathTraversal,
		},
		{
			name:      "absolute path",
			userPath:  "/etc/passwd",
			wantError: ErrPathTraversal,
		},
		{
			name:      "empty path",
			userPath:  "",
			wantError: ErrEmptyPath,
		},
		{
			name:      "very long path",
			userPath:  strings.Repeat("a/", MaxPathLength),
			wantError: ErrPathTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(baseDir, tt.userPath)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Fatalf("SanitizePath() error = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizePath() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SanitizePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError error
	}{
		{"relative", "src/main.go", nil},
		{"absolute", "/src/main.go", nil},
		{"unicode", "src/héllo.go", nil},
		{"empty", "", ErrEmptyPath},
		{"too long", strings.Repeat("x", MaxPathLength+1), ErrPathTooLong},
		{"null byte", "src/\x00.go", ErrInvalidCharacter},
		{"newline", "src/a\nb.go", ErrInvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantError == nil {
				if err != nil {
					t.Errorf("ValidatePath(%q) unexpected error: %v", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.wantError) {
				t.Errorf("ValidatePath(%q) error = %v, want %v", tt.path, err, tt.wantError)
			}
		})
	}
}

func TestValidateSize(t *testing.T) {
	if err := ValidateSize("a.go", MaxFileSize); err != nil {
		t.Errorf("ValidateSize at limit: %v", err)
	}
	if err := ValidateSize("a.go", MaxFileSize+1); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("ValidateSize over limit error = %v, want %v", err, ErrFileTooLarge)
	}
}

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"empty", nil, false},
		{"go source", []byte("package main\n\nfunc main() {}\n"), false},
		{"crlf", []byte("a\r\nb\r\n"), false},
		{"utf8 only", []byte("日本語のテキスト"), false},
		{"null byte", []byte("abc\x00def"), true},
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, true},
		{"mostly control", bytes.Repeat([]byte{0x01, 0x02, 'a'}, 10), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSource("file", tt.data)
			if tt.wantErr && !errors.Is(err, ErrBinary) {
				t.Errorf("ValidateSource() error = %v, want %v", err, ErrBinary)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateSource() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateArchiveType(t *testing.T) {
	xzMagic := []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}
	gzMagic := []byte{0x1f, 0x8b, 0x08}

	tests := []struct {
		name     string
		content  []byte
		filename string
		want     FileType
		wantErr  bool
	}{
		{"tar.xz", xzMagic, "backup.tar.xz", FileTypeTarXZ, false},
		{"tar.gz", gzMagic, "backup.tar.gz", FileTypeTarGZ, false},
		{"tgz", gzMagic, "backup.tgz", FileTypeTarGZ, false},
		{"uppercase", xzMagic, "BACKUP.TAR.XZ", FileTypeTarXZ, false},
		{"gzip named xz", gzMagic, "backup.tar.xz", FileTypeUnknown, true},
		{"text named gz", []byte("hello"), "backup.tar.gz", FileTypeUnknown, true},
		{"zip", []byte{0x50, 0x4b, 0x03, 0x04}, "backup.zip", FileTypeUnknown, true},
		{"empty", nil, "backup.tar.gz", FileTypeUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateArchiveType(bytes.NewReader(tt.content), tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateArchiveType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateArchiveType() = %v, want %v", got, tt.want)
			}
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestValidateArchiveType_ReadError(t *testing.T) {
	if _, err := ValidateArchiveType(failingReader{}, "x.tar.gz"); err == nil {
		t.Error("expected error from failing reader")
	}
}

func TestDetectFileTypeFromMagic(t *testing.T) {
	tarHeader := make([]byte, 512)
	copy(tarHeader[257:], "ustar")

	tests := []struct {
		name string
		buf  []byte
		want FileType
	}{
		{"tar", tarHeader, FileTypeTar},
		{"gzip", []byte{0x1f, 0x8b}, FileTypeGzip},
		{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, FileTypeXZ},
		{"zip", []byte{0x50, 0x4b, 0x03, 0x04}, FileTypeZip},
		{"text", []byte("plain"), FileTypeUnknown},
		{"too short", []byte{0x1f}, FileTypeUnknown},
	}
	for _, tt := range tests {
		if got := detectFileTypeFromMagic(tt.buf); got != tt.want {
			t.Errorf("%s: detectFileTypeFromMagic() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDetectFileTypeFromExtension(t *testing.T) {
	tests := map[string]FileType{
		"a.tar.xz": FileTypeTarXZ,
		"a.tar.gz": FileTypeTarGZ,
		"a.tgz":    FileTypeTarGZ,
		"a.tar":    FileTypeTar,
		"a.xz":     FileTypeXZ,
		"a.gz":     FileTypeGzip,
		"a.zip":    FileTypeZip,
		"a.go":     FileTypeUnknown,
		"noext":    FileTypeUnknown,
	}
	for name, want := range tests {
		if got := DetectFileTypeFromExtension(name); got != want {
			t.Errorf("DetectFileTypeFromExtension(%q) = %v, want %v", name, got, want)
		}
	}
}
