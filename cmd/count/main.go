package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"colony-counter/config"
	app "colony-counter/internal/application"
	"colony-counter/internal/container"
	"colony-counter/internal/domain/entity"
	"colony-counter/internal/infrastructure/report"
	"colony-counter/internal/infrastructure/vision"
	"colony-counter/internal/logger"
)

const (
	exitOK        = 0
	exitError     = 1
	exitAborted   = 130
	defaultOutput = "results.csv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	input     string
	output    string
	recursive bool
	workers   int
	backend   string
	overlay   string
	verbose   bool
	params    entity.Parameters
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	defaults := entity.DefaultParameters()
	opts := &options{}

	fs := pflag.NewFlagSet("count", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.input, "input", "i", "", "image file or directory with images (required)")
	fs.StringVarP(&opts.output, "output", "o", defaultOutput, "destination CSV path")
	fs.BoolVar(&opts.recursive, "recursive", false, "scan sub-directories for images")
	fs.IntVar(&opts.workers, "workers", 1, "number of images processed in parallel")
	fs.StringVar(&opts.backend, "backend", config.BackendNative, "detector backend: native or gocv")
	fs.StringVar(&opts.overlay, "overlay-color", "", "overlay colour, e.g. #00ff00")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log every processed image")

	p := &opts.params
	fs.IntVar(&p.GlobalThresh, "global-thresh", defaults.GlobalThresh, "global inverted threshold")
	fs.IntVar(&p.AdaptiveBlockSize, "adaptive-block-size", defaults.AdaptiveBlockSize, "adaptive threshold block size")
	fs.IntVar(&p.AdaptiveC, "adaptive-C", defaults.AdaptiveC, "adaptive threshold offset")
	fs.IntVar(&p.MorphKernelSize, "morph-kernel-size", defaults.MorphKernelSize, "morphology kernel size")
	fs.IntVar(&p.OpeningIterations, "opening-iterations", defaults.OpeningIterations, "opening iterations")
	fs.IntVar(&p.DilationIterations, "dilation-iterations", defaults.DilationIterations, "dilation iterations")
	fs.IntVar(&p.ClosingIterations, "closing-iterations", defaults.ClosingIterations, "closing iterations")
	fs.Float64Var(&p.MinArea, "min-area", defaults.MinArea, "minimum colony area (exclusive)")
	fs.Float64Var(&p.MaxArea, "max-area", defaults.MaxArea, "maximum colony area (exclusive)")
	fs.Float64Var(&p.ClaheClipLimit, "clahe-clip-limit", defaults.ClaheClipLimit, "CLAHE clip limit")
	fs.IntVar(&p.ClaheTileGridSize, "clahe-tile-grid-size", defaults.ClaheTileGridSize, "CLAHE tile grid size")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.input == "" {
		return nil, errors.New("flag --input is required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	log := zap.NewNop()
	if opts.verbose {
		if log, err = logger.New("debug"); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		defer logger.Sync(log)
	}

	if err := count(ctx, opts, stdout, log); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, "Aborted by user.")
			return exitAborted
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func count(ctx context.Context, opts *options, stdout io.Writer, log *zap.Logger) error {
	detector, err := container.NewDetector(config.DetectorConfig{
		Backend:      opts.backend,
		OverlayColor: opts.overlay,
	})
	if err != nil {
		return err
	}

	input, err := filepath.Abs(opts.input)
	if err != nil {
		return err
	}
	output, err := filepath.Abs(opts.output)
	if err != nil {
		return err
	}

	batch := app.NewBatchService(detector, vision.Codec{}, opts.workers, log)
	rows, err := batch.Run(ctx, input, opts.recursive, opts.params)
	if err != nil {
		return err
	}

	if err := report.WriteFile(output, rows); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %d result(s) to %s\n", len(rows), output)
	return nil
}
