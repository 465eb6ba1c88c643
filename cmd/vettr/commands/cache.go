package commands

import (
	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "점수 캐시 관리",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [entity_id]",
	Short: "점수 캐시 삭제 (인자 없으면 전체)",
	Long: `캐시된 종합 점수를 삭제합니다. Redis 캐시 사용 시 모든 프로세스에 적용됩니다.

Example:
  go run ./cmd/vettr cache clear ACME
  go run ./cmd/vettr cache clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		if err := a.engine.InvalidateScoreCache(cmd.Context(), args[0]); err != nil {
			return err
		}
		PrintSuccess("Cleared cached score of " + args[0])
		return nil
	}

	if err := a.engine.InvalidateAllScores(cmd.Context()); err != nil {
		return err
	}
	PrintSuccess("Cleared every cached score")
	return nil
}
