package process

import (
	"context"
	"errors"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/codemask/core/codegen"
	apperrors "github.com/FocuswithJustin/codemask/core/errors"
	"github.com/FocuswithJustin/codemask/core/marker"
)

// CheckResult is the outcome of verifying one file without changing it.
type CheckResult struct {
	Path    string
	Regions []codegen.RegionReport
	// NeedsRewrite is set when every checksum verifies but a rewrite would
	// still change the file to store checksums of the configured length.
	NeedsRewrite bool
	// Err is the parse or verification failure for this file, if any.
	Err error
	// Context is the source line Err points at, when it names one.
	Context string
}

// OK reports whether the file verified and needs no rewrite.
func (r CheckResult) OK() bool {
	return r.Err == nil && !r.NeedsRewrite
}

// CheckFiles verifies paths concurrently with at most workers files in
// flight (GOMAXPROCS when workers is not positive). Per-file failures are
// recorded in the results, which are in the order of paths; the returned
// error is non-nil only if ctx was cancelled.
func CheckFiles(ctx context.Context, paths []string, cfg codegen.Config, workers int) ([]CheckResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]CheckResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = checkFile(path, cfg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkFile(path string, cfg codegen.Config) CheckResult {
	res := CheckResult{Path: path}

	data, _, err := readSource(path)
	if err != nil {
		res.Err = err
		return res
	}

	res.Regions, err = codegen.Inspect(string(data))
	if err == nil {
		res.NeedsRewrite, err = codegen.Check(string(data), cfg)
	}
	if err != nil {
		res.Err = apperrors.Wrap(err, path)
		res.Context = errorLine(string(data), err)
	}
	return res
}

// errorLine returns the line of source that err reports a position in.
func errorLine(source string, err error) string {
	var (
		syn   *apperrors.SyntaxError
		sum   *apperrors.InvalidChecksumError
		wrong *apperrors.WrongChecksumError
		line  int
	)
	switch {
	case errors.As(err, &syn):
		line = syn.Line
	case errors.As(err, &sum):
		line = sum.Line
	case errors.As(err, &wrong):
		line = wrong.Line
	}
	if line == 0 {
		return ""
	}

	start, ierr := marker.Loc{Line: line - 1}.Index(source)
	if ierr != nil {
		return ""
	}
	text := source[start:]
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return text
}
