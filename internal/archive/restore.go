package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/codemask/internal/fileutil"
	"github.com/FocuswithJustin/codemask/internal/validation"
)

// Restore writes every file of the backup at archivePath back below dir and
// returns the restored entry names in archive order. Entries that would
// land outside dir are rejected before anything is written for them.
func Restore(archivePath, dir string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	_, err = validation.ValidateArchiveType(f, archivePath)
	f.Close()
	if err != nil {
		return nil, err
	}

	var restored []string
	err = IterateArchive(archivePath, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Name == ManifestName || header.Typeflag != tar.TypeReg {
			return false, nil
		}

		rel, err := validation.SanitizePath(dir, header.Name)
		if err != nil {
			return true, fmt.Errorf("archive entry %s: %w", header.Name, err)
		}
		if err := validation.ValidateSize(header.Name, header.Size); err != nil {
			return true, err
		}

		content, err := io.ReadAll(io.LimitReader(r, validation.MaxFileSize))
		if err != nil {
			return true, fmt.Errorf("read %s: %w", header.Name, err)
		}
		if err := fileutil.WriteFileAtomic(filepath.Join(dir, rel), content, os.FileMode(header.Mode).Perm()); err != nil {
			return true, err
		}

		restored = append(restored, header.Name)
		return false, nil
	})
	return restored, err
}
