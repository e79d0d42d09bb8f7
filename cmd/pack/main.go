package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/kinetix3d/wasm-dist/pipeline"
)

func main() {
	var (
		bundlePath   = flag.String("bundle", "", "Path to the self-contained JS bundle")
		descPath     = flag.String("pkg", "", "Path to package.json (optional)")
		importModule = flag.String("import-module", "", "Override the engine's bridge import module name")
		export       = flag.String("export", "", "Override the constructor called during verification")
		renameDep    = flag.String("rename-dep", "", "Rename a descriptor dependency (from=to)")
		noCompact    = flag.Bool("no-compact", false, "Skip bundle compaction")
		verbose      = flag.Bool("v", false, "Verbose logging")
		interactive  = flag.Bool("i", false, "Interactive bundle inspector")
	)
	flag.Parse()

	if *bundlePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: pack -bundle <bundle.js> [-pkg package.json] [-rename-dep from=to]")
		fmt.Fprintln(os.Stderr, "       pack -bundle <bundle.js> -i  (interactive inspector)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInspect(*bundlePath, *importModule); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	renameFrom, renameTo, err := splitRename(*renameDep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pipeline.SetLogger(newLogger(*verbose))

	art, err := pipeline.Run(context.Background(), pipeline.Options{
		BundlePath:     *bundlePath,
		DescriptorPath: *descPath,
		ImportModule:   *importModule,
		SmokeExport:    *export,
		SkipCompact:    *noCompact,
		RenameDepFrom:  renameFrom,
		RenameDepTo:    renameTo,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case art.AlreadyPatched:
		fmt.Printf("%s: already patched, verified\n", *bundlePath)
	default:
		fmt.Printf("%s: patched, verified\n", *bundlePath)
	}
}

// splitRename parses the from=to argument of -rename-dep.
func splitRename(arg string) (string, string, error) {
	if arg == "" {
		return "", "", nil
	}
	from, to, ok := strings.Cut(arg, "=")
	if !ok || from == "" || to == "" {
		return "", "", fmt.Errorf("-rename-dep wants from=to, got %q", arg)
	}
	return from, to, nil
}

// newLogger builds the process logger. Default runs log the per-stage
// confirmations and up; verbose runs add debug detail. Output goes to stderr
// so stdout stays machine-readable: a colored console encoder when stderr is
// a terminal, JSON otherwise.
func newLogger(verbose bool) *zap.Logger {
	var cfg zap.Config
	if term.IsTerminal(int(os.Stderr.Fd())) {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
