package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [entity_id...]",
	Short: "종합 점수 조회",
	Long: `종목별 종합 점수(0-100)와 5개 구성 점수를 출력합니다.

Example:
  go run ./cmd/vettr score ACME
  go run ./cmd/vettr score ACME NRTH --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	scores := make([]*contracts.CompositeScore, 0, len(args))
	for _, id := range args {
		score, err := a.engine.ComputeScore(ctx, id)
		if err != nil {
			return fmt.Errorf("score %s: %w", id, err)
		}
		scores = append(scores, score)
	}

	if jsonOutput {
		return printJSON(scores)
	}

	columns := append([]string{"ENTITY", "OVERALL"}, contracts.ComponentKeys...)
	widths := []int{10, 8, 9, 16, 9, 7, 11}

	PrintHeader("Composite Scores")
	PrintTableHeader(columns, widths)
	for _, s := range scores {
		row := []string{s.EntityID, strconv.Itoa(s.OverallScore)}
		for _, key := range contracts.ComponentKeys {
			row = append(row, strconv.Itoa(s.Components[key]))
		}
		PrintTableRow(row, widths)
	}
	return nil
}
