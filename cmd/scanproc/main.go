// Command scanproc runs the scan pipeline from the shell: one-shot checks and
// fixes for single images, plus a watch mode that processes a scanner hot
// folder into a recorded session.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/assemble"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/dedupe"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/detect"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/observability"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/ocr/tesseract"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/pipeline"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/session"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/watch"
)

type options struct {
	mode        string
	in          string
	out         string
	fix         bool
	useOCR      bool
	dir         string
	db          string
	sessionName string
	sessionID   int64
	verbose     bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scanproc: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "scanproc: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: scanproc -mode <check|process|split|deobject|watch|assemble> [flags]\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.mode, "mode", "check", "Operation to run")
	flag.StringVar(&opts.in, "in", "", "Input image path (check/process/split/deobject)")
	flag.StringVar(&opts.out, "out", "", "Output path (process/deobject/assemble); empty means in place")
	flag.BoolVar(&opts.fix, "fix", true, "Apply corrections during process")
	flag.BoolVar(&opts.useOCR, "ocr", false, "Enable the Tesseract orientation signal")
	flag.StringVar(&opts.dir, "dir", "", "Directory: split output or watch hot folder")
	flag.StringVar(&opts.db, "db", "scans.db", "Session database path (watch/assemble)")
	flag.StringVar(&opts.sessionName, "session", "", "Session name for watch mode")
	flag.Int64Var(&opts.sessionID, "session-id", 0, "Session id for assemble mode")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging to stderr")
	flag.Parse()

	switch opts.mode {
	case "check", "process", "split", "deobject":
		if opts.in == "" {
			return opts, fmt.Errorf("mode %s requires -in", opts.mode)
		}
	case "watch":
		if opts.dir == "" {
			return opts, fmt.Errorf("watch mode requires -dir")
		}
	case "assemble":
		if opts.sessionID == 0 || opts.out == "" {
			return opts, fmt.Errorf("assemble mode requires -session-id and -out")
		}
	default:
		return opts, fmt.Errorf("unknown mode %q", opts.mode)
	}
	return opts, nil
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := newStderrLogger(opts.verbose)
	cfg := pipeline.DefaultConfig()
	cfg.Logger = log
	if opts.useOCR {
		cfg.Orient.Engine = tesseract.NewTesseractEngine()
	}
	proc := pipeline.New(cfg)

	switch opts.mode {
	case "check":
		report, err := proc.Check(ctx, opts.in)
		if err != nil {
			return err
		}
		return emit(report)
	case "process":
		report, err := proc.Process(ctx, opts.in, opts.out, opts.fix)
		if err != nil {
			return err
		}
		return emit(report)
	case "deobject":
		path, err := proc.RemoveOcclusions(ctx, opts.in, opts.out)
		if err != nil {
			return err
		}
		return emit(struct {
			Path string `json:"path"`
		}{path})
	case "split":
		return runSplit(opts, cfg)
	case "watch":
		return runWatch(ctx, opts, proc, log)
	case "assemble":
		return runAssemble(ctx, opts)
	}
	return nil
}

func runSplit(opts options, cfg pipeline.Config) error {
	result, info := detect.TwoPages(opts.in, cfg.TwoPage)
	if result.Err != "" {
		return fmt.Errorf("two-page detection: %s", result.Err)
	}
	out := struct {
		Split detect.SplitInfo `json:"split"`
		Pages []string         `json:"pages,omitempty"`
	}{Split: info}
	if info.IsTwoPages {
		pages, err := pipeline.Split(opts.in, opts.dir, info, cfg.SplitMarginPct)
		if err != nil {
			return err
		}
		out.Pages = pages
	}
	return emit(out)
}

func runWatch(ctx context.Context, opts options, proc *pipeline.Processor, log observability.Logger) error {
	store, err := session.Open(opts.db)
	if err != nil {
		return err
	}
	defer store.Close()

	name := opts.sessionName
	if name == "" {
		name = "session-" + time.Now().Format("20060102-150405")
	}
	sess, err := store.CreateSession(ctx, name)
	if err != nil {
		return err
	}
	log.Info("session opened",
		observability.Int("id", int(sess.ID)),
		observability.String("name", sess.Name))

	gate := dedupe.New(dedupe.DefaultConfig())
	watcher, err := watch.New(watch.Config{Dir: opts.dir, Logger: log})
	if err != nil {
		return err
	}

	runErr := watcher.Run(ctx, func(path string) {
		if pipeline.IsSplitChild(path) {
			return
		}
		dup, err := gate.IsDuplicate(path)
		if err != nil {
			log.Warn("duplicate gate failed",
				observability.String("path", path),
				observability.Error("error", err))
			return
		}
		if dup {
			log.Info("duplicate scan skipped", observability.String("path", path))
			return
		}
		report, err := proc.Process(ctx, path, "", opts.fix)
		if err != nil {
			log.Error("processing failed",
				observability.String("path", path),
				observability.Error("error", err))
			return
		}
		record := func(p string, attention bool) {
			if _, err := store.AddPage(ctx, sess.ID, p, attention); err != nil {
				log.Error("record page failed",
					observability.String("path", p),
					observability.Error("error", err))
			}
		}
		if len(report.SplitImages) == 2 {
			record(report.SplitImages[0], report.NeedsAttention)
			record(report.SplitImages[1], report.NeedsAttention)
		} else {
			record(report.ProcessedImagePath, report.NeedsAttention)
		}
	})

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.CloseSession(closeCtx, sess.ID); err != nil {
		log.Warn("close session failed", observability.Error("error", err))
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func runAssemble(ctx context.Context, opts options) error {
	store, err := session.Open(opts.db)
	if err != nil {
		return err
	}
	defer store.Close()

	pages, err := store.Pages(ctx, opts.sessionID)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(pages))
	for _, p := range pages {
		paths = append(paths, p.Path)
	}
	if err := assemble.PDF(paths, opts.out); err != nil {
		return err
	}
	return emit(struct {
		PDF   string `json:"pdf"`
		Pages int    `json:"pages"`
	}{opts.out, len(paths)})
}

func emit(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
