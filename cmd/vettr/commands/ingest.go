package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m-a-n-a-v/vettr/backend/internal/external/filings"
	"github.com/m-a-n-a-v/vettr/backend/pkg/httputil"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "외부 데이터 수집",
}

var ingestFilingsCmd = &cobra.Command{
	Use:   "filings [entity_id] [url]",
	Short: "공시 인덱스 HTML 수집",
	Long: `공시 인덱스 페이지(date | type | summary | material 표)를 파싱해 filings에 저장합니다.
URL 대신 --file 로 저장된 HTML을 지정할 수 있습니다.

Example:
  go run ./cmd/vettr ingest filings ACME https://example.com/acme/filings
  go run ./cmd/vettr ingest filings ACME --file acme.html`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runIngestFilings,
}

var (
	ingestFile string
	ingestRate float64
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestFilingsCmd)

	ingestFilingsCmd.Flags().StringVar(&ingestFile, "file", "", "로컬 HTML 파일")
	ingestFilingsCmd.Flags().Float64Var(&ingestRate, "rate", 2, "초당 요청 수 제한")
}

func runIngestFilings(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		PrintWarning("DATABASE_URL not set: filings are kept in memory for this run only")
	}

	client := httputil.New(a.log).WithRateLimit(ingestRate)
	ingester := filings.NewIngester(client, a.filings, a.log.Zerolog())
	entityID := args[0]

	var n int
	switch {
	case ingestFile != "":
		html, err := os.ReadFile(ingestFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", ingestFile, err)
		}
		n, err = ingester.IngestHTML(cmd.Context(), entityID, html)
		if err != nil {
			return err
		}
	case len(args) == 2:
		n, err = ingester.IngestURL(cmd.Context(), entityID, args[1])
		if err != nil {
			return err
		}
	default:
		return errors.New("either a URL or --file is required")
	}

	// 새 공시가 반영되도록 캐시 무효화
	if err := a.engine.InvalidateScoreCache(cmd.Context(), entityID); err != nil {
		a.log.WithError(err).Warn("Score cache invalidation failed")
	}

	PrintSuccess(fmt.Sprintf("Ingested %d filings for %s", n, entityID))
	return nil
}
