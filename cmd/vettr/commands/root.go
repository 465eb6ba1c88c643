package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/m-a-n-a-v/vettr/backend/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vettr",
	Short: "vettr - 종목 인텔리전스 분석 엔진",
	Long: `vettr Unified CLI

공시/경영진 기록으로 red flag 탐지, 종합 점수 산출, 추세 분석을 수행합니다.
DATABASE_URL이 없으면 watchlist 기반 메모리 저장소로 동작합니다.

Usage:
  go run ./cmd/vettr [command]

Examples:
  go run ./cmd/vettr api
  go run ./cmd/vettr score ACME NRTH
  go run ./cmd/vettr flags ACME
  go run ./cmd/vettr scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// loadConfig reads the environment and applies the global flag overrides
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
