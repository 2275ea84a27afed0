package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/report"
	"github.com/cordlesssteve/topolop/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		debounceMs int
		timeoutMs  int
		only       []string
	)
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Re-scan automatically whenever project files change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			cfg, _, err := config.Load(root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("timeout") {
				cfg.TimeoutMs = timeoutMs
			}
			if len(only) > 0 {
				cfg.Adapters.Enabled = only
			}

			log, err := buildLogger(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			out := cmd.OutOrStdout()
			scanOnce := func(ctx context.Context) {
				rep, err := runScan(ctx, root, cfg, "", 0, log)
				if err != nil {
					log.Errorw("scan failed", "error", err)
					return
				}
				if _, err := report.WriteFile(root, rep); err != nil {
					log.Errorw("report write failed", "error", err)
				}
				report.Summary(out, rep)
			}

			scanOnce(cmd.Context())
			w, err := watch.New(watch.Options{
				Root:     root,
				Debounce: time.Duration(debounceMs) * time.Millisecond,
				Logger:   log,
				OnChange: func(ctx context.Context, paths []string) {
					fmt.Fprintf(out, "\n%d paths changed, rescanning\n", len(paths))
					scanOnce(ctx)
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nWatching %s (ctrl-c to stop)\n", root)
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&debounceMs, "debounce", 2000, "Quiet period before a rescan in milliseconds")
	cmd.Flags().IntVar(&timeoutMs, "timeout", 0, "Per-adapter timeout in milliseconds")
	cmd.Flags().StringSliceVar(&only, "adapters", nil, "Run only the named adapters")
	return cmd
}
