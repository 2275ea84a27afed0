// Package cli wires the cobra command tree. This is the only layer that reads
// the environment; config and credentials flow downward from here.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cordlesssteve/topolop/internal/adapters"
	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/engine"
	"github.com/cordlesssteve/topolop/internal/logging"
	"github.com/cordlesssteve/topolop/internal/model"
	"github.com/cordlesssteve/topolop/internal/report"
	"github.com/cordlesssteve/topolop/internal/tui"
)

// ErrIssuesFound marks a completed run whose issue count crossed the severity
// threshold. main maps it to exit code 1; every other error exits 2.
var ErrIssuesFound = errors.New("issues at or above threshold")

func AddCommands(root *cobra.Command) {
	root.PersistentFlags().Bool("debug", false, "Verbose diagnostic logging")
	root.AddCommand(newScanCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newAdaptersCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newWatchCmd())
}

func newScanCmd() *cobra.Command {
	var (
		threshold     string
		format        string
		timeoutMs     int
		includeDev    bool
		outDir        string
		only          []string
		baselinePath  string
		writeBaseline string
		useTUI        bool
		parallel      int
	)
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Run every available analyzer and aggregate the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validFormat(format) {
				return fmt.Errorf("unknown format %q: want table|summary|json|sarif", format)
			}
			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			cfg, cfgFile, err := config.Load(root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				cfg.SeverityThreshold = threshold
			}
			if cmd.Flags().Changed("timeout") {
				cfg.TimeoutMs = timeoutMs
			}
			if cmd.Flags().Changed("include-dev") {
				cfg.IncludeDev = includeDev
			}
			if len(only) > 0 {
				cfg.Adapters.Enabled = only
			}
			gate, err := thresholdFlag(cfg.SeverityThreshold)
			if err != nil {
				return err
			}

			log, err := buildLogger(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfgFile != "" {
				log.Debugw("config loaded", "file", cfgFile)
			}

			rep, err := runScan(cmd.Context(), root, cfg, baselinePath, parallel, log)
			if err != nil {
				return err
			}

			if outDir != "" {
				path, err := report.WriteFile(outDir, rep)
				if err != nil {
					return err
				}
				log.Debugw("report written", "file", path)
			}
			if writeBaseline != "" {
				if err := engine.WriteBaseline(writeBaseline, rep); err != nil {
					return err
				}
			}

			if useTUI {
				if err := tui.Run(rep); err != nil {
					return err
				}
			} else if err := render(cmd.OutOrStdout(), rep, format, gate); err != nil {
				return err
			}

			if rep.CountAtOrAbove(gate) > 0 {
				return ErrIssuesFound
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&threshold, "threshold", "t", "", "Severity gate for the exit code: critical|high|medium|low|info")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table|summary|json|sarif")
	cmd.Flags().IntVar(&timeoutMs, "timeout", 0, "Per-adapter timeout in milliseconds")
	cmd.Flags().BoolVar(&includeDev, "include-dev", false, "Include development dependencies in dependency scans")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write topolop-results.json into")
	cmd.Flags().StringSliceVar(&only, "adapters", nil, "Run only the named adapters")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "Suppress issues listed in this baseline file")
	cmd.Flags().StringVar(&writeBaseline, "write-baseline", "", "Write the run's issue ids to this file")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Browse the report interactively")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Max adapters running at once (default 4)")
	return cmd
}

func runScan(ctx context.Context, root string, cfg config.Config, baselinePath string, parallel int, log *zap.SugaredLogger) (*model.UnifiedReport, error) {
	eng := engine.New(engine.Options{
		Root:         root,
		Config:       cfg,
		Adapters:     adapters.Catalog(cfg, credsFromEnv(), root),
		Logger:       log,
		MaxParallel:  parallel,
		BaselinePath: baselinePath,
	})
	return eng.Run(ctx)
}

// credsFromEnv is the one place secrets cross from the environment into the
// core. godotenv has already folded .env into the process env at main.
func credsFromEnv() adapters.Credentials {
	return adapters.Credentials{
		NewRelicAPIKey: os.Getenv("NEW_RELIC_API_KEY"),
		DatadogAPIKey:  os.Getenv("DATADOG_API_KEY"),
		DatadogAppKey:  os.Getenv("DD_APP_KEY"),
		SnykToken:      os.Getenv("SNYK_TOKEN"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
	}
}

func render(w io.Writer, rep *model.UnifiedReport, format string, gate model.Severity) error {
	switch format {
	case "json":
		data, err := report.Marshal(rep)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "sarif":
		data, err := report.ToSARIF(rep)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "summary":
		report.Summary(w, rep)
	default:
		report.Table(w, rep, gate)
	}
	return nil
}

func validFormat(f string) bool {
	switch f {
	case "table", "summary", "json", "sarif":
		return true
	}
	return false
}

func resolveRoot(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project root %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", path)
	}
	return abs, nil
}

// thresholdFlag validates user-supplied severity names strictly; the lenient
// model.ParseSeverity fallback is for tool vocabularies, not flags.
func thresholdFlag(s string) (model.Severity, error) {
	sev := model.Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !model.ValidSeverity(sev) {
		return "", fmt.Errorf("invalid threshold %q: want critical|high|medium|low|info", s)
	}
	return sev, nil
}

func buildLogger(cmd *cobra.Command) (*zap.SugaredLogger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	return logging.New(debug)
}
