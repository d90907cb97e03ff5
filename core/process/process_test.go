package process

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/codemask/core/codegen"
	apperrors "github.com/FocuswithJustin/codemask/core/errors"
	"github.com/FocuswithJustin/codemask/internal/validation"
)

type memoryBackup struct {
	files map[string][]byte
	err   error
}

func (b *memoryBackup) Add(name string, content []byte) error {
	if b.err != nil {
		return b.err
	}
	if b.files == nil {
		b.files = make(map[string][]byte)
	}
	b.files[name] = content
	return nil
}

func ignore(_ string, out *codegen.Output) (codegen.Usage, error) {
	_, _ = out.WriteString("discarded")
	return codegen.Ignore, nil
}

func writer(s string) codegen.Producer {
	return func(_ string, out *codegen.Output) (codegen.Usage, error) {
		_, _ = out.WriteString(s)
		return codegen.Use, nil
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const template = "package x\n\n// << codegen body >>\n// << /codegen >>\n"

func TestProcessFileRewrites(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.go", template)
	backup := &memoryBackup{}

	res, err := ProcessFile(context.Background(), path, codegen.Config{}, writer("var A = 1"), Options{Backup: backup})
	require.NoError(t, err)

	want := "package x\n\n// << codegen body >>\nvar A = 1\n// << /codegen >>\n"
	assert.True(t, res.Changed)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, len(template), res.Before)
	assert.Equal(t, len(want), res.After)
	assert.Equal(t, want, readFile(t, path))
	assert.Equal(t, template, string(backup.files[path]))
}

func TestProcessFileUnchanged(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.go", template)
	backup := &memoryBackup{}

	res, err := ProcessFile(context.Background(), path, codegen.Config{}, writer(""), Options{Backup: backup})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, res.Before, res.After)
	assert.Equal(t, template, readFile(t, path))
	assert.Empty(t, backup.files)
}

func TestProcessFileDryRun(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.go", template)
	backup := &memoryBackup{}

	res, err := ProcessFile(context.Background(), path, codegen.Config{}, writer("new"), Options{DryRun: true, Backup: backup})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Greater(t, res.After, res.Before)
	assert.Equal(t, template, readFile(t, path))
	assert.Empty(t, backup.files)
}

func TestProcessFilePreservesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	path := writeFile(t, t.TempDir(), "gen.sh", "#!/bin/sh\n# << codegen cmds >>\n# << /codegen >>\n")
	require.NoError(t, os.Chmod(path, 0750))

	_, err := ProcessFile(context.Background(), path, codegen.Config{}, writer("echo hi"), Options{})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0750), info.Mode().Perm())
}

func TestProcessFileErrorsLeaveFileUntouched(t *testing.T) {
	dir := t.TempDir()
	tampered := writeFile(t, dir, "tampered.go", "// << codegen a >>\nedited\n// << /codegen 0000000000000000 >>\n")
	broken := writeFile(t, dir, "broken.go", "// << codegen a >>\n")

	_, err := ProcessFile(context.Background(), tampered, codegen.DefaultConfig(), writer("x"), Options{})
	require.ErrorIs(t, err, apperrors.ErrWrongChecksum)
	assert.Contains(t, err.Error(), tampered)
	assert.Equal(t, "// << codegen a >>\nedited\n// << /codegen 0000000000000000 >>\n", readFile(t, tampered))

	_, err = ProcessFile(context.Background(), broken, codegen.DefaultConfig(), writer("x"), Options{})
	require.ErrorIs(t, err, apperrors.ErrSyntax)
	assert.Equal(t, "// << codegen a >>\n", readFile(t, broken))
}

func TestProcessFileBackupFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.go", template)
	cause := errors.New("disk full")

	_, err := ProcessFile(context.Background(), path, codegen.Config{}, writer("x"), Options{Backup: &memoryBackup{err: cause}})
	require.ErrorIs(t, err, cause)

	var ioErr *apperrors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "backup", ioErr.Operation)
	assert.Equal(t, template, readFile(t, path))
}

func TestProcessFileRejectsInput(t *testing.T) {
	dir := t.TempDir()

	_, err := ProcessFile(context.Background(), filepath.Join(dir, "missing.go"), codegen.Config{}, writer(""), Options{})
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = ProcessFile(context.Background(), dir, codegen.Config{}, writer(""), Options{})
	require.Error(t, err, "directories are not processed")

	bin := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(bin, []byte{0, 1, 2, 3}, 0644))
	_, err = ProcessFile(context.Background(), bin, codegen.Config{}, writer(""), Options{})
	require.ErrorIs(t, err, validation.ErrBinary)

	_, err = ProcessFile(context.Background(), "", codegen.Config{}, writer(""), Options{})
	require.ErrorIs(t, err, validation.ErrEmptyPath)
}

func TestProcessFilesStopsAtFirstError(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "1.go", template)
	bad := writeFile(t, dir, "2.go", "<< /codegen >>\n")
	last := writeFile(t, dir, "3.go", template)

	results, err := ProcessFiles(context.Background(), []string{first, bad, last}, codegen.Config{}, writer("v"), Options{})
	require.ErrorIs(t, err, apperrors.ErrSyntax)
	require.Len(t, results, 1)
	assert.Equal(t, first, results[0].Path)

	assert.NotEqual(t, template, readFile(t, first), "earlier files stay written")
	assert.Equal(t, template, readFile(t, last), "later files are not touched")
}

func TestProcessFilesCancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.go", template)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := ProcessFiles(ctx, []string{path}, codegen.Config{}, writer("v"), Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Equal(t, template, readFile(t, path))
}

func TestProcessFilesAll(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", template)
	b := writeFile(t, dir, "b.txt", "no markers\n")

	results, err := ProcessFiles(context.Background(), []string{a, b}, codegen.Config{}, writer("v"), Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Changed)
	assert.False(t, results[1].Changed)
}

func TestProcessFileIgnore(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.go", template)
	res, err := ProcessFile(context.Background(), path, codegen.Config{}, ignore, Options{})
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestProcessDirectoryWithBinaryAndPlainFiles(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "a.go", template)
	writeFile(t, dir, "notes.txt", "nothing generated here\n")
	writeFile(t, dir, ".env", "CODEMASK_STRICT=false\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup.tar.xz"), []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, 0644))

	paths, err := Expand([]string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{src}, paths)

	results, err := ProcessFiles(context.Background(), paths, codegen.Config{}, writer("var A = 1"), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Changed)

	checked, err := CheckFiles(context.Background(), paths, codegen.Config{}, 0)
	require.NoError(t, err)
	require.Len(t, checked, 1)
	assert.True(t, checked[0].OK())
}
