package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m-a-n-a-v/vettr/backend/internal/engine"
)

// flagsCmd represents the flags command
var flagsCmd = &cobra.Command{
	Use:   "flags [entity_id...]",
	Short: "Red flag 탐지",
	Long: `공시/경영진 기록으로 red flag를 탐지하고 심각도를 출력합니다.
탐지 결과는 flag 이력에 기록됩니다.

Example:
  go run ./cmd/vettr flags ACME`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFlags,
}

func init() {
	rootCmd.AddCommand(flagsCmd)
}

func runFlags(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reports := make([]*engine.FlagReport, 0, len(args))
	for _, id := range args {
		report, err := a.engine.DetectFlags(cmd.Context(), id)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	}

	if jsonOutput {
		return printJSON(reports)
	}

	widths := []int{24, 7, 50}
	for _, r := range reports {
		PrintHeader(fmt.Sprintf("%s  severity=%s  total=%.2f", r.EntityID, r.Severity, r.TotalScore))
		if len(r.Flags) == 0 {
			PrintSuccess("No red flags")
			continue
		}
		PrintTableHeader([]string{"FLAG", "SCORE", "DESCRIPTION"}, widths)
		for _, f := range r.Flags {
			PrintTableRow([]string{string(f.Kind), fmt.Sprintf("%.2f", f.Score), f.Description}, widths)
		}
	}
	return nil
}
