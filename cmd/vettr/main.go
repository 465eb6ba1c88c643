package main

import (
	"os"

	"github.com/m-a-n-a-v/vettr/backend/cmd/vettr/commands"
)

// main is the entry point for the vettr CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/vettr [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
