package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/company-scout/internal/progress"
	"github.com/sells-group/company-scout/internal/scout"
)

var selftestCase string

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the built-in end-to-end acceptance cases against the live provider",
	Long:  "Runs each self-test case through the full pipeline and reports soft pass/fail. Cases depend on live search results and may flake; failures are reported, never fatal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, err := buildEngine(cfg)
		if err != nil {
			return err
		}

		cases := scout.DefaultSelfTestCases
		if selftestCase != "" {
			cases = nil
			for _, tc := range scout.DefaultSelfTestCases {
				if tc.Name == selftestCase {
					cases = append(cases, tc)
				}
			}
			if len(cases) == 0 {
				return fmt.Errorf("unknown selftest case %q", selftestCase)
			}
		}

		outcomes := engine.SelfTest(ctx, cases, progress.Logger())

		passed := 0
		for _, o := range outcomes {
			status := "FAIL"
			if o.Passed {
				status = "PASS"
				passed++
			}
			detail := fmt.Sprintf("%d companies, found [%s]", o.CompanyCount, strings.Join(o.Found, ", "))
			if o.Err != nil {
				detail = "error: " + o.Err.Error()
			}
			fmt.Printf("%-6s %-24s %s\n", status, o.Case.Name, detail)
		}
		fmt.Printf("\n%d/%d cases passed\n", passed, len(outcomes))
		return nil
	},
}

func init() {
	selftestCmd.Flags().StringVar(&selftestCase, "case", "", "run only the named case")
	rootCmd.AddCommand(selftestCmd)
}
