// Command panelreg measures drill registration for every panel in a directory
// of quadrant X-ray images and writes one annotated mosaic per panel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/ironsheep/xray-registration/internal/config"
	"github.com/ironsheep/xray-registration/internal/detection"
	"github.com/ironsheep/xray-registration/internal/panel"
	"github.com/ironsheep/xray-registration/internal/report"
	"github.com/ironsheep/xray-registration/internal/stats"
	"github.com/ironsheep/xray-registration/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type options struct {
	dir        string
	out        string
	configPath string
	dbPath     string
	histogram  bool
	extractor  string
	mode       string
}

func main() {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.dir, "dir", ".", "directory of quadrant images (P##QQ_###...)")
	flag.StringVar(&opts.out, "out", "", "output directory (default: config output.dir)")
	flag.StringVar(&opts.configPath, "config", os.Getenv(config.PathEnv), "YAML configuration file")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite history database (default: config output.database)")
	flag.BoolVar(&opts.histogram, "histogram", false, "also write an offset histogram per panel")
	flag.StringVar(&opts.extractor, "extractor", "", "contour extractor: bild or gocv (default: config extraction.backend)")
	flag.StringVar(&opts.mode, "mode", "", "pairing mode for every image: adjacent, offset:K or tree:D")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("panelreg %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("panelreg: %v", err)
	}
}

// run returns an error only when processing cannot start; failures of
// individual panels are reported and the remaining panels still run.
func run(ctx context.Context, opts options, w io.Writer) error {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.out != "" {
		cfg.Output.Dir = opts.out
	}
	if opts.dbPath != "" {
		cfg.Output.Database = opts.dbPath
	}
	if opts.histogram {
		cfg.Output.Histogram = true
	}
	if opts.extractor != "" {
		cfg.Extraction.Backend = opts.extractor
	}
	if opts.mode != "" {
		cfg.Pairing.Mode = opts.mode
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	extractor, err := detection.New(cfg.Extraction.Backend, cfg.DetectionOptions())
	if err != nil {
		return err
	}

	paths, err := panel.ScanDir(opts.dir)
	if err != nil {
		return err
	}
	groups, skipped := panel.GroupByPanel(paths)
	for _, err := range skipped {
		log.Printf("Skipping %v", err)
	}
	if len(groups) == 0 {
		return fmt.Errorf("no panel images found in %s", opts.dir)
	}

	var st *store.Store
	var runID string
	if cfg.Output.Database != "" {
		st, err = store.Open(cfg.Output.Database)
		if err != nil {
			return err
		}
		defer st.Close()
		if runID, err = st.StartRun(opts.dir); err != nil {
			return err
		}
		if cfg.Logging.Debug {
			log.Printf("Recording run %s to %s", runID, cfg.Output.Database)
		}
	}

	proc := panel.NewProcessor(cfg, nil, extractor)
	results := make([]*panel.PanelResult, 0, len(groups))
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			log.Printf("Stopping before panel %s: %v", g.Panel, err)
			break
		}

		res := proc.MeasureGroup(ctx, g)
		results = append(results, res)

		out, err := report.WritePanel(res, cfg.Output.Dir, cfg.Calibration.MaxOffset, cfg.Output.Histogram)
		switch {
		case errors.Is(err, report.ErrNothingMeasured):
			log.Printf("Panel %s: no quadrant could be measured", res.Panel)
		case err != nil:
			log.Printf("Panel %s: %v", res.Panel, err)
		default:
			log.Printf("Panel %s: wrote %s", res.Panel, out.Mosaic)
		}

		if st != nil {
			if err := st.RecordPanel(runID, res); err != nil {
				log.Printf("Panel %s: failed to record: %v", res.Panel, err)
			}
		}
	}

	return writeSummary(w, results)
}

// writeSummary prints one row per panel with its quadrant and panel means.
func writeSummary(w io.Writer, results []*panel.PanelResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "PANEL")
	for _, q := range panel.Quadrants {
		fmt.Fprintf(tw, "\t%s", q)
	}
	fmt.Fprintln(tw, "\tPAIRS\tMEAN\tMIN\tMAX\tERRORS")

	for _, res := range results {
		fmt.Fprint(tw, res.Panel)
		for _, q := range panel.Quadrants {
			fmt.Fprintf(tw, "\t%s", meanText(res.QuadrantStatistic(q)))
		}
		mean, min, max, ok := res.Statistic.Value()
		if ok {
			fmt.Fprintf(tw, "\t%d\t%.2f\t%.2f\t%.2f", res.Statistic.Count(), mean, min, max)
		} else {
			na := stats.NotApplicableText
			fmt.Fprintf(tw, "\t0\t%s\t%s\t%s", na, na, na)
		}
		fmt.Fprintf(tw, "\t%d\n", len(res.Errors))
	}
	return tw.Flush()
}

func meanText(s stats.Statistic) string {
	mean, _, _, ok := s.Value()
	if !ok {
		return stats.NotApplicableText
	}
	return fmt.Sprintf("%.2f", mean)
}
