// Package snippet produces region content from the snippets declared in the
// project configuration. A snippet is static text, the contents of a file
// or the standard output of a command.
package snippet

import (
	"bytes"
	"context"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/FocuswithJustin/codemask/core/codegen"
	apperrors "github.com/FocuswithJustin/codemask/core/errors"
	"github.com/FocuswithJustin/codemask/internal/config"
	"github.com/FocuswithJustin/codemask/internal/logging"
)

// Set maps region identifiers to snippets.
type Set struct {
	snippets map[string]config.Snippet
	strict   bool
	resolve  func(string) string
}

// New builds a Set from cfg. Relative snippet paths resolve against the
// config directory.
func New(cfg *config.Config) *Set {
	return &Set{
		snippets: cfg.Snippets,
		strict:   cfg.Strict,
		resolve:  cfg.Resolve,
	}
}

// Identifiers returns the configured identifiers in sorted order.
func (s *Set) Identifiers() []string {
	return slices.Sorted(maps.Keys(s.snippets))
}

// Producer returns a codegen.Producer serving regions from the set. Regions
// without a snippet keep their content, with a warning; in strict mode they
// fail with errors.ErrNotFound instead. Commands are bound to ctx.
func (s *Set) Producer(ctx context.Context) codegen.Producer {
	return func(identifier string, out *codegen.Output) (codegen.Usage, error) {
		sn, ok := s.snippets[identifier]
		if !ok {
			if s.strict {
				return codegen.Ignore, apperrors.NewNotFound("snippet", identifier)
			}
			logging.WarnContext(ctx, "no snippet for region, keeping its content", "identifier", identifier)
			return codegen.Ignore, nil
		}

		switch {
		case sn.File != "":
			data, err := os.ReadFile(s.resolve(sn.File))
			if err != nil {
				return codegen.Ignore, apperrors.NewIO("read snippet", sn.File, err)
			}
			_, _ = out.Write(data)
		case sn.Command != "":
			if err := s.run(ctx, sn, out); err != nil {
				return codegen.Ignore, err
			}
		default:
			_, _ = out.WriteString(sn.Text)
		}
		return codegen.Use, nil
	}
}

// run executes the snippet's command, streaming its stdout into out.
func (s *Set) run(ctx context.Context, sn config.Snippet, out *codegen.Output) error {
	cmd := exec.CommandContext(ctx, sn.Command, sn.Args...)
	cmd.Dir = s.resolve(sn.Dir)
	if cmd.Dir == "" {
		cmd.Dir = s.resolve(".")
	}
	var stderr bytes.Buffer
	cmd.Stdout = out
	cmd.Stderr = &stderr

	logging.DebugContext(ctx, "running snippet command", "command", sn.Command, "args", sn.Args, "dir", cmd.Dir)
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return apperrors.Wrapf(err, "command %s (stderr: %s)", sn.Command, msg)
		}
		return apperrors.Wrapf(err, "command %s", sn.Command)
	}
	return nil
}
