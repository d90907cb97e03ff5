package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/codemask/core/checksum"
	"github.com/FocuswithJustin/codemask/core/process"
	"github.com/FocuswithJustin/codemask/internal/archive"
	"github.com/FocuswithJustin/codemask/internal/config"
	"github.com/FocuswithJustin/codemask/internal/logging"
	"github.com/FocuswithJustin/codemask/internal/snippet"
	"github.com/FocuswithJustin/codemask/internal/validation"
	"github.com/FocuswithJustin/codemask/internal/watch"
)

// GenCmd regenerates files.
type GenCmd struct {
	Files  []string `arg:"" optional:"" help:"Files, directories or glob patterns (default: files from the config)"`
	DryRun bool     `name:"dry-run" short:"n" help:"Report what would change without writing"`
	Backup string   `help:"Back up original content to this .tar.xz or .tar.gz before rewriting (overrides config). Files outside the config directory are stored under their absolute path" type:"path"`
	Strict bool     `help:"Fail on regions without a configured snippet instead of keeping them"`
}

func (c *GenCmd) Run(ctx context.Context) error {
	cfg, ctx, err := setup(ctx)
	if err != nil {
		return err
	}
	if c.Strict {
		cfg.Strict = true
	}

	backupPath := c.Backup
	if backupPath == "" {
		backupPath = cfg.Resolve(cfg.Backup)
	}
	files, err := expand(cfg, c.Files, backupPath)
	if err != nil {
		return err
	}

	opts := process.Options{DryRun: c.DryRun}
	var backup *lazyBackup
	if backupPath != "" && !c.DryRun {
		if archive.DetectFormat(backupPath) == archive.FormatUnknown {
			return fmt.Errorf("backup must end in .tar.xz, .tar.gz or .tgz: %s", backupPath)
		}
		backup = &lazyBackup{path: backupPath, runID: logging.GetRunID(ctx), base: cfg.Dir}
		opts.Backup = backup
	}

	produce := snippet.New(cfg).Producer(ctx)
	results, err := process.ProcessFiles(ctx, files, cfg.Engine(), produce, opts)
	if backup != nil {
		err = errors.Join(err, backup.Close())
	}
	printResults(results, c.DryRun)
	if backup != nil && backup.w != nil {
		fmt.Fprintf(stdout, "backup of %d files written to %s\n", backup.w.Len(), backupPath)
	}
	return err
}

// CheckCmd verifies files.
type CheckCmd struct {
	Files   []string `arg:"" optional:"" help:"Files, directories or glob patterns (default: files from the config)"`
	Workers int      `help:"Files checked in parallel (default: number of CPUs)"`
}

func (c *CheckCmd) Run(ctx context.Context) error {
	cfg, ctx, err := setup(ctx)
	if err != nil {
		return err
	}
	files, err := expand(cfg, c.Files)
	if err != nil {
		return err
	}

	results, err := process.CheckFiles(ctx, files, cfg.Engine(), c.Workers)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			fmt.Fprintf(stdout, "FAIL %v\n", res.Err)
			if res.Context != "" {
				fmt.Fprintf(stdout, "    | %s\n", res.Context)
			}
		case res.NeedsRewrite:
			failed++
			fmt.Fprintf(stdout, "STALE %s: stored checksums differ from the configured length of %d bytes\n", res.Path, cfg.ChecksumBytes)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed verification", failed, len(results))
	}
	fmt.Fprintf(stdout, "%d files verified\n", len(results))
	return nil
}

// ListCmd lists regions.
type ListCmd struct {
	Files []string `arg:"" optional:"" help:"Files, directories or glob patterns (default: files from the config)"`
}

func (c *ListCmd) Run(ctx context.Context) error {
	cfg, ctx, err := setup(ctx)
	if err != nil {
		return err
	}
	files, err := expand(cfg, c.Files)
	if err != nil {
		return err
	}

	results, err := process.CheckFiles(ctx, files, cfg.Engine(), 0)
	if err != nil {
		return err
	}

	var errs []error
	for _, res := range results {
		for _, r := range res.Regions {
			state := "ok"
			switch {
			case !r.Verified:
				state = fmt.Sprintf("modified (stored %s, content hashes to %s)",
					r.Stored, checksum.FromHash(r.Actual, r.Stored.Len()))
			case r.Stored.IsEmpty():
				state = "unchecked"
			}
			fmt.Fprintf(stdout, "%s:%d\t%s\t%d lines\t%s\n", res.Path, r.Line, r.Identifier, r.Lines, state)
		}
		if res.Err != nil && len(res.Regions) == 0 {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// RestoreCmd restores a backup.
type RestoreCmd struct {
	Archive string `arg:"" help:"Backup archive" type:"existingfile"`
	Dir     string `help:"Directory to restore into (default: the config directory). Files backed up by absolute path restore below it, so use --dir / to put them back in place" type:"path"`
	List    bool   `short:"l" help:"Only list the files in the backup"`
}

func (c *RestoreCmd) Run(ctx context.Context) error {
	cfg, ctx, err := setup(ctx)
	if err != nil {
		return err
	}

	if c.List {
		m, err := archive.ReadManifest(c.Archive)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "backup %s (run %s, %s)\n", c.Archive, m.RunID, m.CreatedAt)
		for _, f := range m.Files {
			fmt.Fprintf(stdout, "  %s\n", f)
		}
		return nil
	}

	dir := c.Dir
	if dir == "" {
		dir = cfg.Dir
	}
	restored, err := archive.Restore(c.Archive, dir)
	if errors.Is(err, validation.ErrPathTraversal) {
		logging.SecurityEvent("path_traversal", "restore", "archive", c.Archive, "error", err.Error())
	}
	for _, name := range restored {
		fmt.Fprintf(stdout, "restored %s\n", name)
	}
	if err != nil {
		return err
	}
	logging.InfoContext(ctx, "backup restored", "archive", c.Archive, "dir", dir, "files", len(restored))
	return nil
}

// WatchCmd regenerates on change.
type WatchCmd struct {
	Files    []string      `arg:"" optional:"" help:"Files, directories or glob patterns (default: files from the config)"`
	Debounce time.Duration `help:"Quiet period before regenerating" default:"200ms"`
}

func (c *WatchCmd) Run(ctx context.Context) error {
	cfg, ctx, err := setup(ctx)
	if err != nil {
		return err
	}
	files, err := expand(cfg, c.Files)
	if err != nil {
		return err
	}

	produce := snippet.New(cfg).Producer(ctx)
	regenerate := func(ctx context.Context, changed []string) error {
		results, err := process.ProcessFiles(ctx, changed, cfg.Engine(), produce, process.Options{})
		printResults(results, false)
		return err
	}

	if err := regenerate(ctx, files); err != nil {
		logging.ErrorContext(ctx, "initial regeneration failed", "error", err.Error())
	}

	w, err := watch.New(files, c.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	logging.InfoContext(ctx, "watching files", "files", len(files))
	return w.Run(ctx, regenerate)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "codemask version %s\n", version)
	return nil
}

// Helper functions

// setup initializes logging from the global flags, loads the configuration
// and tags ctx with a fresh run ID.
func setup(ctx context.Context) (*config.Config, context.Context, error) {
	level, err := logging.ParseLevel(CLI.LogLevel)
	if err != nil {
		return nil, ctx, err
	}
	format, err := logging.ParseFormat(CLI.LogFormat)
	if err != nil {
		return nil, ctx, err
	}
	logging.InitLogger(level, format)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, ctx, err
	}
	if CLI.ChecksumBytes != "" {
		n, err := strconv.Atoi(CLI.ChecksumBytes)
		if err != nil {
			return nil, ctx, fmt.Errorf("invalid --checksum-bytes %q: %w", CLI.ChecksumBytes, err)
		}
		cfg.ChecksumBytes = n
		if err := cfg.Validate(); err != nil {
			return nil, ctx, err
		}
	}

	ctx = logging.WithRunID(ctx, logging.NewRunID())
	logging.DebugContext(ctx, "configuration loaded", "path", cfg.Path, "checksum_bytes", cfg.ChecksumBytes, "snippets", len(cfg.Snippets))
	return cfg, ctx, nil
}

// expand resolves the files to work on: the arguments if given, otherwise
// the configured patterns relative to the config directory. The configured
// backup archive and any path in skip are left out.
func expand(cfg *config.Config, args []string, skip ...string) ([]string, error) {
	patterns := args
	if len(patterns) == 0 {
		for _, p := range cfg.Files {
			patterns = append(patterns, cfg.Resolve(p))
		}
	}
	if len(patterns) == 0 {
		return nil, errors.New("no files given and none configured")
	}
	files, err := process.Expand(patterns, cfg.Exclude)
	if err != nil {
		return nil, err
	}

	skip = append(skip, cfg.Resolve(cfg.Backup))
	return slices.DeleteFunc(files, func(f string) bool {
		return isAny(f, skip)
	}), nil
}

// isAny reports whether path names the same file as any of others.
func isAny(path string, others []string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, o := range others {
		if o == "" {
			continue
		}
		if oabs, err := filepath.Abs(o); err == nil && oabs == abs {
			return true
		}
	}
	return false
}

func printResults(results []process.Result, dryRun bool) {
	verb := "updated"
	if dryRun {
		verb = "would update"
	}

	changed := 0
	for _, res := range results {
		if !res.Changed {
			continue
		}
		changed++
		fmt.Fprintf(stdout, "%s %s (%s -> %s)\n", verb, res.Path,
			humanize.Bytes(uint64(res.Before)), humanize.Bytes(uint64(res.After)))
	}
	fmt.Fprintf(stdout, "%d of %d files %s\n", changed, len(results), strings.TrimPrefix(verb, "would "))
}

// lazyBackup opens the backup archive on the first file that needs it, so
// runs that change nothing leave any previous backup alone.
type lazyBackup struct {
	path  string
	runID string
	base  string
	w     *archive.Writer
}

func (b *lazyBackup) Add(name string, content []byte) error {
	if b.w == nil {
		w, err := archive.NewWriter(b.path, b.runID)
		if err != nil {
			return err
		}
		b.w = w
	}

	entry, err := backupName(b.base, name)
	if err != nil {
		return err
	}
	return b.w.Add(entry, content)
}

// backupName returns the archive entry for name: its path relative to base,
// or its absolute path without the volume and leading separator when it lies
// outside base.
func backupName(base, name string) (string, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	if rel, err := filepath.Rel(base, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return rel, nil
	}
	return strings.TrimLeft(abs[len(filepath.VolumeName(abs)):], `/\`), nil
}

func (b *lazyBackup) Close() error {
	if b.w == nil {
		return nil
	}
	return b.w.Close()
}
