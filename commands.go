package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ecomtools/pkg/calculator"
	"ecomtools/pkg/config"
	"ecomtools/pkg/database"
	"ecomtools/pkg/export"
	"ecomtools/pkg/httpapi"
	"ecomtools/pkg/models"
	"ecomtools/pkg/period"
	"ecomtools/pkg/tableio"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	config    string
	dsn       string
	table     string
	csv       string
	reference string
	period    string
	out       string
	format    string
	verbose   bool
	quiet     bool
}

// settings is filled by the root pre-run hook.
var settings config.Settings

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ecomtools",
		Short:         "Ecommerce transaction analytics: customers, products, cohorts, RFM/ABC and order latency",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(rootFlags.verbose)
			cfg, err := config.Load(rootFlags.config)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &cfg); err != nil {
				return err
			}
			settings = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&rootFlags.config, "config", "ecomtools.yaml", "YAML config file")
	pf.StringVar(&rootFlags.dsn, "dsn", "", "source DSN (mysql://, mariadb://, postgres://, sqlite://)")
	pf.StringVar(&rootFlags.table, "table", "", "source table name")
	pf.StringVar(&rootFlags.csv, "csv", "", "read transaction lines from a CSV file instead of a database")
	pf.StringVar(&rootFlags.reference, "reference", "", "reference date YYYY-MM-DD, MMYYYY or \"now\" (default: latest order date)")
	pf.StringVar(&rootFlags.period, "period", "", "cohort period: day, week, month, quarter or year")
	pf.StringVar(&rootFlags.out, "out", "", "output directory")
	pf.StringVar(&rootFlags.format, "format", "", "output format: csv or json")
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&rootFlags.quiet, "quiet", "q", false, "hide the progress bar")

	root.AddCommand(newRunCmd(), newServeCmd())
	for _, kind := range calculator.Kinds {
		root.AddCommand(newKindCmd(kind))
	}
	return root
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func applyFlags(cmd *cobra.Command, cfg *config.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("dsn") {
		cfg.DSN = rootFlags.dsn
	}
	if flags.Changed("table") {
		cfg.Table = rootFlags.table
	}
	if flags.Changed("csv") {
		cfg.CSV = rootFlags.csv
	}
	if flags.Changed("out") {
		cfg.OutputDir = rootFlags.out
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(rootFlags.format)
	}
	if flags.Changed("period") {
		p, err := period.Parse(rootFlags.period)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
		}
		cfg.Analysis.Period = p
	}
	if flags.Changed("reference") {
		ref, err := calculator.ParseReference(rootFlags.reference)
		if err != nil {
			return err
		}
		cfg.Analysis.Reference = ref
	}
	cfg.Analysis.Verbose = cfg.Analysis.Verbose || rootFlags.verbose
	if !rootFlags.quiet {
		cfg.Analysis.Progress = os.Stderr
	}
	return config.Validate(*cfg)
}

// loadRaw reads the configured CSV file, or the configured database table.
func loadRaw(ctx context.Context) (models.RawTable, error) {
	if settings.CSV != "" {
		slog.Debug("reading csv", "path", settings.CSV)
		return tableio.ReadCSVFile(settings.CSV)
	}
	if settings.DSN == "" {
		return models.RawTable{}, fmt.Errorf("%w: set --csv or --dsn (or ECOMTOOLS_DSN)", models.ErrInvalidConfig)
	}
	src, err := database.Open(ctx, settings.DSN)
	if err != nil {
		return models.RawTable{}, err
	}
	defer src.Close()
	return src.LoadTable(ctx, settings.Table)
}

// exporters returns the file exporter plus a Mongo exporter when a URI is configured.
// The returned func releases them.
func exporters(ctx context.Context, runID string) ([]export.Exporter, func(), error) {
	file, err := export.NewFileExporter(settings.OutputDir, settings.OutputFormat)
	if err != nil {
		return nil, nil, err
	}
	out := []export.Exporter{file}
	closeAll := func() {}
	if settings.MongoURI != "" {
		m, err := export.NewMongoExporter(ctx, settings.MongoURI, settings.MongoDatabase, runID)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, m)
		closeAll = func() { _ = m.Close(context.Background()) }
	}
	return out, closeAll, nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every analysis and export the full report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			raw, err := loadRaw(ctx)
			if err != nil {
				return err
			}
			report, err := calculator.Run(ctx, raw, settings.Analysis)
			if err != nil {
				return err
			}
			exps, closeAll, err := exporters(ctx, report.RunID)
			if err != nil {
				return err
			}
			defer closeAll()
			for _, e := range exps {
				if err := export.Report(ctx, e, report); err != nil {
					return err
				}
			}
			printSummary(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printSummary(w io.Writer, r *models.Report) {
	fmt.Fprintf(w, "run %s ; reference %s\n", r.RunID, r.Reference.Format("2006-01-02"))
	fmt.Fprintf(w, "items=%d ; orders=%d ; customers=%d ; products=%d\n",
		r.Items, len(r.Orders), len(r.Customers), len(r.Products))
	s := r.LatencySummary
	fmt.Fprintf(w, "latency days: mean=%.2f p50=%.2f p90=%.2f (customers=%d)\n", s.Mean, s.P50, s.P90, s.Customers)
}

func newKindCmd(kind string) *cobra.Command {
	return &cobra.Command{
		Use:   kind,
		Short: fmt.Sprintf("Compute the %s table (CSV on stdout unless --out is set)", kind),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			raw, err := loadRaw(ctx)
			if err != nil {
				return err
			}
			table, err := calculator.RunKind(ctx, raw, settings.Analysis, kind)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("out") && settings.MongoURI == "" {
				return tableio.WriteCSV(cmd.OutOrStdout(), table)
			}
			exps, closeAll, err := exporters(ctx, uuid.NewString())
			if err != nil {
				return err
			}
			defer closeAll()
			for _, e := range exps {
				if err := e.Export(ctx, strings.ReplaceAll(kind, "-", "_"), table); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyses over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				settings.HTTPPort = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			analysis := settings.Analysis
			analysis.Progress = nil
			srv := httpapi.Server(":"+strconv.Itoa(settings.HTTPPort), httpapi.NewRouter(httpapi.NewHandler(analysis)))
			errCh := make(chan error, 1)
			go func() {
				slog.Info("http server listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			slog.Info("http server shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config or HTTP_PORT)")
	return cmd
}
