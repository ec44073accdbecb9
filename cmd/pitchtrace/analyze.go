package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TomokaItou/voice-training/dsp/pitch"
	"github.com/TomokaItou/voice-training/internal/audiofile"
	"github.com/TomokaItou/voice-training/internal/config"
	"github.com/TomokaItou/voice-training/track"
)

var errAnalysisFailed = errors.New("one or more files could not be analysed")

// fileReport is the outcome of one file.
type fileReport struct {
	path    string
	result  track.Result
	summary track.Summary
	err     error
}

type analyzeOptions struct {
	outDir string
	yes    bool
}

func runAnalyze(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	algorithm := fs.String("algorithm", "", "pitch algorithm: amdf, normxcorr or hps (default from config)")
	mode := fs.String("mode", "", "batch mode: stabilized or raw (default from config)")
	noFormants := fs.Bool("no-formants", false, "skip formant tracking")
	keepPartial := fs.Bool("keep-partial", false, "keep the contour of cancelled runs")
	outDir := fs.String("out", "", "directory for CSV contours; none are written when empty")
	yes := fs.Bool("yes", false, "analyse recordings longer than the configured maximum")
	jobs := fs.Int("jobs", runtime.NumCPU(), "files analysed concurrently")
	quiet := fs.Bool("quiet", false, "hide progress bars")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pitchtrace analyze [flags] file...\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		fs.Usage()
		return errors.New("analyze needs at least one file")
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if *algorithm != "" {
		if cfg.Pitch.Algorithm, err = pitch.ParseAlgorithm(*algorithm); err != nil {
			return err
		}
	}
	if *mode != "" {
		if cfg.Batch.Mode, err = track.ParseMode(*mode); err != nil {
			return err
		}
	}
	if *noFormants {
		cfg.Formant.Enabled = false
	}
	if *keepPartial {
		cfg.Batch.KeepPartial = true
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	var barOut io.Writer = stderr
	if *quiet {
		barOut = io.Discard
	}
	progress := mpb.NewWithContext(ctx, mpb.WithOutput(barOut), mpb.WithWidth(48))

	opts := analyzeOptions{outDir: *outDir, yes: *yes}
	reports := make([]fileReport, len(files))
	var g errgroup.Group
	g.SetLimit(max(1, *jobs))
	for i, path := range files {
		g.Go(func() error {
			reports[i] = analyzeFile(ctx, cfg, logger, progress, path, opts)
			return nil
		})
	}
	_ = g.Wait()
	progress.Wait()

	printReports(stdout, reports)
	for _, r := range reports {
		if r.err != nil {
			return errAnalysisFailed
		}
	}
	return nil
}

func analyzeFile(ctx context.Context, cfg config.Config, logger *zap.Logger, progress *mpb.Progress, path string, opts analyzeOptions) fileReport {
	bar := progress.AddBar(100,
		mpb.PrependDecorators(decor.Name(filepath.Base(path), decor.WC{C: decor.DSyncSpaceR})),
		mpb.AppendDecorators(decor.OnAbort(decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"), "stopped")),
	)
	defer func() {
		if !bar.Completed() {
			bar.Abort(false)
		}
	}()

	log := logger.With(zap.String("file", path))
	sessionOpts := append(cfg.SessionOptions(),
		track.WithLogger(log),
		track.WithSink(barSink{bar: bar}),
	)
	session, err := track.NewSession(sessionOpts...)
	if err != nil {
		return fileReport{path: path, err: err}
	}

	confirm := func(d time.Duration) bool {
		if !opts.yes {
			log.Warn("recording exceeds the maximum duration, pass -yes to analyse it",
				zap.Duration("duration", d), zap.Duration("max", cfg.Batch.MaxDuration))
		}
		return opts.yes
	}
	batch, err := track.NewBatch(session, confirm, cfg.BatchOptions()...)
	if err != nil {
		return fileReport{path: path, err: err}
	}

	res, err := batch.Analyze(ctx, func() ([]float64, float64, error) {
		a, err := audiofile.DecodeFile(path)
		if err != nil {
			return nil, 0, err
		}
		return a.Samples, a.SampleRate, nil
	})
	if err != nil {
		return fileReport{path: path, result: res, err: err}
	}

	report := fileReport{path: path, result: res, summary: track.Summarize(res.Contour)}
	if res.Outcome == track.OutcomeDone && opts.outDir != "" {
		if err := writeContour(opts.outDir, path, res.Contour); err != nil {
			report.err = err
		}
	}
	return report
}

// writeContour writes <name>.pitch.csv and, when formants were tracked,
// <name>.formants.csv. A contour without voiced samples writes no pitch
// file.
func writeContour(dir, path string, c track.Contour) error {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var buf bytes.Buffer
	switch err := track.WriteCSV(&buf, c); {
	case errors.Is(err, track.ErrEmptyContour):
	case err != nil:
		return err
	default:
		if err := os.WriteFile(filepath.Join(dir, base+".pitch.csv"), buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write pitch csv: %w", err)
		}
	}

	if len(c.Formants) == 0 {
		return nil
	}
	buf.Reset()
	if err := track.WriteFormantCSV(&buf, c); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, base+".formants.csv"), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write formant csv: %w", err)
	}
	return nil
}

func printReports(w io.Writer, reports []fileReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tOUTCOME\tDURATION\tVOICED\tMEAN\tMEDIAN\tSTDDEV\tRANGE\tNOTE")
	for _, r := range reports {
		name := filepath.Base(r.path)
		if r.err != nil {
			fmt.Fprintf(tw, "%s\tfailed\t-\t-\t-\t-\t-\t-\t%v\n", name, r.err)
			continue
		}
		s := r.summary
		if s.Voiced == 0 {
			fmt.Fprintf(tw, "%s\t%s\t%v\t0%%\t-\t-\t-\t-\t--\n",
				name, r.result.Outcome, r.result.Duration.Round(10*time.Millisecond))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%.0f%%\t%.1f Hz\t%.1f Hz\t%.1f\t%.1f-%.1f\t%s\n",
			name, r.result.Outcome, r.result.Duration.Round(10*time.Millisecond),
			100*s.VoicedRatio, s.MeanHz, s.MedianHz, s.StdDevHz, s.MinHz, s.MaxHz, s.MeanNote)
	}
	_ = tw.Flush()
}

// barSink drives a progress bar from batch callbacks.
type barSink struct {
	track.NopSink
	bar *mpb.Bar
}

func (s barSink) OnProgress(percent float64) {
	s.bar.SetCurrent(int64(percent))
}

func (s barSink) OnDone() {
	s.bar.SetCurrent(100)
}

func (s barSink) OnCancelled() {
	s.bar.Abort(false)
}

func (s barSink) OnError(error) {
	s.bar.Abort(false)
}
