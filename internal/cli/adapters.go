package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cordlesssteve/topolop/internal/adapters"
	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/model"
)

const probeTimeout = 5 * time.Second

func newAdaptersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "adapters", Short: "Inspect the adapter catalog"}
	cmd.AddCommand(newAdaptersListCmd())
	return cmd
}

func newAdaptersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List adapters with their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(nil)
			if err != nil {
				return err
			}
			cfg, _, err := config.Load(root)
			if err != nil {
				return err
			}
			for _, a := range adapters.Catalog(cfg, credsFromEnv(), root) {
				desc := a.Descriptor()
				probeCtx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
				avail := a.Probe(probeCtx)
				cancel()

				state := "unavailable"
				switch {
				case !cfg.AdapterEnabled(desc.Name):
					state = "disabled"
				case avail.Available && avail.Version != "":
					state = "available " + avail.Version
				case avail.Available:
					state = "available"
				case len(avail.Diagnostics) > 0:
					state = avail.Diagnostics[0]
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-11s %-28s %s\n",
					desc.Name, desc.Kind, joinTypes(desc.AnalysisTypes), state)
			}
			return nil
		},
	}
}

func joinTypes(types []model.AnalysisType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
