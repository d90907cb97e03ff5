// Package process applies the regeneration engine to files on disk.
//
// A file is read whole, regenerated in memory and written back atomically
// only if something changed. Each file is all or nothing; a batch stops at
// the first failing file and leaves earlier files written.
package process

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/FocuswithJustin/codemask/core/codegen"
	apperrors "github.com/FocuswithJustin/codemask/core/errors"
	"github.com/FocuswithJustin/codemask/internal/fileutil"
	"github.com/FocuswithJustin/codemask/internal/logging"
	"github.com/FocuswithJustin/codemask/internal/validation"
)

// Backup receives the original content of a file just before it is
// overwritten.
type Backup interface {
	Add(name string, content []byte) error
}

// Options controls how results are persisted.
type Options struct {
	// DryRun computes results without writing anything.
	DryRun bool
	// Backup, if set, receives each file's original content before the
	// file is rewritten.
	Backup Backup
}

// Result describes what happened to one file.
type Result struct {
	Path    string
	Changed bool
	// Before and After are the file sizes in bytes. After equals Before
	// when nothing changed.
	Before   int
	After    int
	Duration time.Duration
}

// ProcessFile regenerates the file at path and rewrites it if it changed.
func ProcessFile(ctx context.Context, path string, cfg codegen.Config, produce codegen.Producer, opts Options) (Result, error) {
	started := time.Now()
	res := Result{Path: path}

	data, mode, err := readSource(path)
	if err != nil {
		return res, err
	}
	res.Before, res.After = len(data), len(data)

	traced := func(identifier string, out *codegen.Output) (codegen.Usage, error) {
		usage, err := produce(identifier, out)
		if err == nil {
			logging.RegionProduced(ctx, identifier, usage.String(), "path", path)
		}
		return usage, err
	}

	out, changed, err := codegen.Generate(string(data), cfg, traced)
	if err != nil {
		return res, apperrors.Wrap(err, path)
	}
	res.Changed = changed
	if changed {
		res.After = len(out)
	}

	if changed && !opts.DryRun {
		if opts.Backup != nil {
			if err := opts.Backup.Add(path, data); err != nil {
				return res, apperrors.NewIO("backup", path, err)
			}
		}
		if err := fileutil.WriteFileAtomic(path, out, mode); err != nil {
			return res, apperrors.NewIO("write", path, err)
		}
	}

	res.Duration = time.Since(started)
	logging.FileProcessed(ctx, path, res.Changed, res.Before, res.After, res.Duration, "dry_run", opts.DryRun)
	return res, nil
}

// ProcessFiles runs ProcessFile over paths in order. It stops at the first
// error or when ctx is cancelled, returning the results gathered so far.
func ProcessFiles(ctx context.Context, paths []string, cfg codegen.Config, produce codegen.Producer, opts Options) ([]Result, error) {
	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := ProcessFile(ctx, path, cfg, produce, opts)
		if err != nil {
			logging.FileError(ctx, path, err)
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// readSource reads a file codemask is allowed to rewrite and returns its
// content and permission bits.
func readSource(path string) ([]byte, os.FileMode, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, 0, apperrors.NewIO("validate", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, apperrors.NewIO("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, 0, apperrors.NewIO("stat", path, fmt.Errorf("not a regular file"))
	}
	if err := validation.ValidateSize(path, info.Size()); err != nil {
		return nil, 0, apperrors.NewIO("stat", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, apperrors.NewIO("read", path, err)
	}
	if err := validation.ValidateSource(path, data); err != nil {
		return nil, 0, apperrors.NewIO("read", path, err)
	}
	return data, info.Mode().Perm(), nil
}
