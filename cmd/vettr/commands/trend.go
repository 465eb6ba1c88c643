package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// trendCmd represents the trend command
var trendCmd = &cobra.Command{
	Use:   "trend [entity_id]",
	Short: "점수/flag 추세 조회",
	Long: `최근 30일 점수 추세와 직전 30일 대비 flag 추세를 출력합니다.

Example:
  go run ./cmd/vettr trend ACME`,
	Args: cobra.ExactArgs(1),
	RunE: runTrend,
}

func init() {
	rootCmd.AddCommand(trendCmd)
}

func runTrend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	id := args[0]

	scoreTrend, err := a.engine.ScoreTrend(ctx, id)
	if err != nil {
		return err
	}
	flagTrend, err := a.engine.FlagTrend(ctx, id)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]interface{}{
			"score": scoreTrend,
			"flags": flagTrend,
		})
	}

	PrintHeader(id + " trend")
	PrintKeyValue("Score direction", string(scoreTrend.Direction), 16)
	PrintKeyValue("Score change", fmt.Sprintf("%+d (%d → %d)", scoreTrend.ScoreChange, scoreTrend.PreviousScore, scoreTrend.CurrentScore), 16)
	PrintKeyValue("Score momentum", fmt.Sprintf("%.2f / week", scoreTrend.Momentum), 16)
	PrintSeparator()
	PrintKeyValue("Flag direction", string(flagTrend.Direction), 16)
	PrintKeyValue("Recent flags", fmt.Sprintf("%d (score %.2f)", flagTrend.RecentFlagCount, flagTrend.RecentFlagScore), 16)
	PrintKeyValue("Resolved flags", fmt.Sprintf("%d", flagTrend.ResolvedFlagCount), 16)
	PrintKeyValue("Flag momentum", fmt.Sprintf("%.2f / week", flagTrend.Momentum), 16)

	if scoreTrend.Samples < 2 {
		PrintWarning("Not enough score history for a trend")
	}
	return nil
}
