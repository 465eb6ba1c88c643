package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/m-a-n-a-v/vettr/backend/internal/api"
	"github.com/m-a-n-a-v/vettr/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET    /health
  GET    /api/stocks/{id}/flags
  GET    /api/stocks/{id}/score
  GET    /api/stocks/{id}/trend/score
  GET    /api/stocks/{id}/trend/flags
  DELETE /api/scores/cache/{id}
  DELETE /api/scores/cache
  POST   /api/sync/scores
  GET    /ws/scores            - 실시간 점수 스트림
  GET    /metrics              - Prometheus

Example:
  go run ./cmd/vettr api
  go run ./cmd/vettr api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "스케줄러를 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	routes := api.Routes{
		Stocks: handlers.NewStockHandler(a.engine, a.log),
		Scores: handlers.NewScoreHandler(a.engine, a.log),
		Stream: a.hub,
	}
	if a.cfg.MetricsEnabled {
		routes.Metrics = a.metrics.Handler()
	}
	server := api.New(a.cfg, a.log, api.NewRouter(routes, a.log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if apiWithScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
