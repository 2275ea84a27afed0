package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/export"
	"github.com/cordlesssteve/topolop/internal/report"
)

func newExportCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Upload the latest report to object storage",
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
			if ep := os.Getenv("S3_ENDPOINT"); ep != "" {
				cfg.Export.Endpoint = ep
			}

			file := in
			if file == "" {
				file = filepath.Join(root, report.ResultsFileName)
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read report: %w (run `topolop scan --out .` first)", err)
			}
			rep, err := report.Parse(data)
			if err != nil {
				return err
			}

			log, err := buildLogger(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			up, err := export.New(cfg.Export, os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_SECRET_KEY"), log)
			if err != nil {
				return err
			}
			if err := up.Upload(cmd.Context(), rep); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded run %s to %s/%s\n",
				rep.RunID, cfg.Export.Bucket, up.Key(rep.RunID, report.ResultsFileName))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "Report file to upload (default <path>/topolop-results.json)")
	return cmd
}
