package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/company-scout/internal/model"
	"github.com/sells-group/company-scout/internal/progress"
)

var (
	scoutMaxResults int
	scoutMinScore   int
	scoutOutput     string
	scoutQuiet      bool
)

var scoutCmd = &cobra.Command{
	Use:   "scout <criteria>",
	Short: "Run the discovery pipeline for a research brief",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, err := buildEngine(cfg)
		if err != nil {
			return err
		}

		rep := progress.Logger()
		if scoutQuiet {
			rep = progress.Nop()
		}

		result, err := engine.Scout(ctx, model.ScoutRequest{
			Criteria:          args[0],
			MaxResults:        scoutMaxResults,
			MinRelevanceScore: scoutMinScore,
		}, rep)
		if err != nil {
			return eris.Wrap(err, "scout")
		}

		switch scoutOutput {
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(result)
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		default:
			return eris.Errorf("unknown output format %q (want json or yaml)", scoutOutput)
		}
	},
}

func init() {
	scoutCmd.Flags().IntVar(&scoutMaxResults, "max-results", 0, "maximum accepted companies to return (5-50, default 20)")
	scoutCmd.Flags().IntVar(&scoutMinScore, "min-score", 0, "minimum relevance score to accept (1-10, default 5)")
	scoutCmd.Flags().StringVarP(&scoutOutput, "output", "o", "json", "output format: json or yaml")
	scoutCmd.Flags().BoolVarP(&scoutQuiet, "quiet", "q", false, "suppress progress logging")
	rootCmd.AddCommand(scoutCmd)
}
