package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m-a-n-a-v/vettr/backend/internal/records"
	"github.com/m-a-n-a-v/vettr/backend/internal/watchlist"
	"github.com/m-a-n-a-v/vettr/backend/pkg/database"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

var (
	migratePrint bool
	migrateSeed  bool
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 적용",
	Long: `vettr 스키마(entities, filings, executives, score_history, flag_history)를 적용합니다.
모든 문장은 IF NOT EXISTS 이므로 반복 실행해도 안전합니다.

Example:
  go run ./cmd/vettr migrate
  go run ./cmd/vettr migrate --print
  go run ./cmd/vettr migrate --seed-watchlist`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "SQL만 출력하고 적용하지 않음")
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed-watchlist", false, "watchlist 종목 메타데이터를 entities에 upsert")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migratePrint {
		fmt.Print(database.Schema())
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.HasDatabase() {
		return errors.New("DATABASE_URL is required for migrate")
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(cmd.Context()); err != nil {
		return err
	}

	log.Info("Schema applied")
	PrintSuccess("Schema applied")

	if !migrateSeed {
		return nil
	}

	wl, err := watchlist.Load(cfg.Scheduler.WatchlistPath)
	if err != nil {
		return err
	}
	repo := records.NewEntityRepository(db.Pool)
	for _, e := range wl.ToEntities() {
		if err := repo.Save(cmd.Context(), e); err != nil {
			return fmt.Errorf("seed %s: %w", e.ID, err)
		}
	}
	PrintSuccess(fmt.Sprintf("Seeded %d entities from %s", len(wl.Entities), cfg.Scheduler.WatchlistPath))
	return nil
}
