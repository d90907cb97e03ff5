// Command codemask regenerates the generated regions of source files.
//
// Regions are delimited by marker comments:
//
//	// << codegen header >>
//	...generated content...
//	// << /codegen 1a2b3c4d5e6f7a8b >>
//
// The end marker stores a checksum of the region, so hand edits to
// generated code are detected instead of silently overwritten. Region
// content comes from the snippets declared in codemask.toml or
// codemask.yaml.
//
// Usage:
//
//	codemask gen [files...] [--dry-run] [--backup backup.tar.xz]
//	codemask check [files...]
//	codemask list [files...]
//	codemask restore <backup.tar.xz> [--dir <dir>]
//	codemask watch [files...]
package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
)

const version = "0.1.0"

// stdout receives command output. Logs go to stderr.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for codemask.
var CLI struct {
	// Global flags
	Config        string `name:"config" short:"c" help:"Config file (default: codemask.toml, codemask.yaml or codemask.yml searched upward)" type:"path"`
	ChecksumBytes string `name:"checksum-bytes" help:"Checksum bytes stored per region, 0 to 32 (overrides config)"`
	LogLevel      string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"info"`
	LogFormat     string `name:"log-format" help:"Log format" enum:"auto,json,text" default:"auto"`

	Gen     GenCmd     `cmd:"" help:"Regenerate generated regions"`
	Check   CheckCmd   `cmd:"" help:"Verify region checksums without changing files"`
	List    ListCmd    `cmd:"" help:"List generated regions"`
	Restore RestoreCmd `cmd:"" help:"Restore files from a backup archive"`
	Watch   WatchCmd   `cmd:"" help:"Regenerate whenever a file changes"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx := kong.Parse(&CLI,
		kong.Name("codemask"),
		kong.Description("Keep generated code regions up to date and tamper evident"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(runCtx, (*context.Context)(nil)),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
