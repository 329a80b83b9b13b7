// Command cutdetect runs cut detection on a local video file and writes the result JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fiapx/fiapx-cutdetect-service/internal/detector"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/config"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-cutdetect-service/internal/result"
	"github.com/fiapx/fiapx-cutdetect-service/internal/scan"
	"github.com/fiapx/fiapx-cutdetect-service/pkg/logger"
	"go.uber.org/zap"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitDecode    = 3
	exitCancelled = 130
)

type options struct {
	method      string
	minLen      int
	threshold   float64
	window      int
	k           float64
	preset      string
	presetsFile string
	notesFile   string
	output      string
	ffmpegPath  string
	ffprobePath string
	width       int
	verbose     bool
	quiet       bool
	input       string
	set         map[string]bool
}

type openerFunc func(o options, log *zap.Logger) port.FrameSourceOpener

func main() {
	cancel := &scan.CancelFlag{}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupt: finishing with the cuts confirmed so far")
		cancel.Cancel()
		<-sigCh
		os.Exit(exitCancelled)
	}()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, cancel, ffmpegOpener))
}

func ffmpegOpener(o options, log *zap.Logger) port.FrameSourceOpener {
	return ffmpeg.NewDecoder(o.ffmpegPath, o.ffprobePath, o.width, log)
}

func run(args []string, stdout, stderr io.Writer, cancel *scan.CancelFlag, newOpener openerFunc) int {
	o, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "cutdetect: %v\n", err)
		return exitUsage
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log, err := logger.NewConsole(level)
	if err != nil {
		fmt.Fprintf(stderr, "cutdetect: %v\n", err)
		return exitFailure
	}
	defer log.Sync()

	cfg, err := buildConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "cutdetect: %v\n", err)
		return exitUsage
	}
	notes, err := readNotes(o.notesFile)
	if err != nil {
		fmt.Fprintf(stderr, "cutdetect: %v\n", err)
		return exitUsage
	}
	if _, err := os.Stat(o.input); err != nil {
		fmt.Fprintf(stderr, "cutdetect: %v\n", err)
		return exitFailure
	}

	session, err := scan.NewSession(o.input, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "cutdetect: %v\n", err)
		return exitCode(err)
	}

	ctx := context.Background()
	src, err := newOpener(o, log).Open(ctx, o.input)
	if err != nil {
		fmt.Fprintf(stderr, "cutdetect: open %s: %v\n", o.input, err)
		return exitDecode
	}
	defer src.Close()

	if !o.quiet {
		cancel.Report = newProgressLine(stderr).report
	}
	res, err := session.Run(ctx, src, cancel)
	if !o.quiet {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		fmt.Fprintf(stderr, "cutdetect: %v\n", err)
		return exitCode(err)
	}

	if err := result.ApplyNotes(res, notes); err != nil {
		fmt.Fprintf(stderr, "cutdetect: notes: %v\n", err)
		return exitUsage
	}
	if err := result.Validate(res); err != nil {
		fmt.Fprintf(stderr, "cutdetect: %v\n", err)
		return exitFailure
	}
	if err := writeResult(o.output, stdout, res); err != nil {
		fmt.Fprintf(stderr, "cutdetect: %v\n", err)
		return exitFailure
	}

	fmt.Fprintf(stderr, "%s: %d cuts over %d frames (%s)\n", o.input, len(res.Cuts), res.FramesProcessed, res.Status)
	if res.Status == entity.StatusCancelled {
		return exitCancelled
	}
	return exitOK
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("cutdetect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, `usage: cutdetect [flags] video

flags:
`)
		fs.PrintDefaults()
		fmt.Fprint(stderr, `
exit codes: 0 ok, 1 failure, 2 usage or invalid configuration, 3 decode error, 130 cancelled
`)
	}

	fs.StringVar(&o.method, "method", string(entity.MethodContent), "detection method: content, adaptive or threshold")
	fs.IntVar(&o.minLen, "min-len", detector.DefaultMinLenFrames, "minimum cut length in frames")
	fs.Float64Var(&o.threshold, "threshold", 0, "content threshold in (0,1) or pixel threshold in (0,255], by method")
	fs.IntVar(&o.window, "window", detector.DefaultAdaptiveWindow, "adaptive rolling window size")
	fs.Float64Var(&o.k, "k", detector.DefaultAdaptiveK, "adaptive standard deviation multiplier")
	fs.StringVar(&o.preset, "preset", "", "named preset from -presets")
	fs.StringVar(&o.presetsFile, "presets", "", "YAML presets file")
	fs.StringVar(&o.notesFile, "notes", "", `JSON object of cut notes by 1-based index, e.g. {"2": "interview"}`)
	fs.StringVar(&o.output, "o", "", "write the result to this file instead of stdout")
	fs.StringVar(&o.ffmpegPath, "ffmpeg", "ffmpeg", "ffmpeg binary")
	fs.StringVar(&o.ffprobePath, "ffprobe", "ffprobe", "ffprobe binary")
	fs.IntVar(&o.width, "width", 320, "analysis width in pixels")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	fs.BoolVar(&o.quiet, "q", false, "no progress output")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return o, fmt.Errorf("expected one input video, got %d arguments", fs.NArg())
	}
	o.input = fs.Arg(0)
	o.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// buildConfig applies the preset and then every flag given explicitly.
func buildConfig(o options) (detector.Config, error) {
	cfg := detector.DefaultConfig()
	presets, err := config.LoadPresets(o.presetsFile)
	if err != nil {
		return cfg, err
	}
	if cfg, err = presets.Apply(o.preset, cfg); err != nil {
		return cfg, err
	}

	if o.set["method"] || o.preset == "" {
		m, err := entity.ParseMethod(o.method)
		if err != nil {
			return cfg, err
		}
		cfg.Method = m
	}
	if o.set["min-len"] || o.preset == "" {
		cfg.MinLenFrames = o.minLen
	}
	if o.set["threshold"] {
		switch cfg.Method {
		case entity.MethodThreshold:
			cfg.Threshold.PixelThreshold = o.threshold
		case entity.MethodContent:
			cfg.Content.Threshold = o.threshold
		default:
			return cfg, fmt.Errorf("%w: -threshold does not apply to method %s",
				entity.ErrInvalidConfiguration, cfg.Method)
		}
	}
	if o.set["window"] {
		cfg.Adaptive.Window = o.window
	}
	if o.set["k"] {
		cfg.Adaptive.K = o.k
	}
	return cfg, cfg.Validate()
}

func readNotes(path string) (map[int]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notes: %w", err)
	}
	var notes map[int]string
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("parse notes %s: %w", path, err)
	}
	return notes, nil
}

func writeResult(path string, stdout io.Writer, res *entity.Result) error {
	if path == "" {
		return result.Encode(stdout, res)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := result.Encode(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func exitCode(err error) int {
	switch entity.ErrorKind(err) {
	case "":
		return exitOK
	case entity.ErrorKindInvalidConfiguration:
		return exitUsage
	case entity.ErrorKindDecode:
		return exitDecode
	default:
		return exitFailure
	}
}
