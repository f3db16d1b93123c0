// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-orchestrator/internal/store"
	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <papers.yaml>",
	Short: "Ingest papers from a YAML file into the local index",
	Long: `Ingest reads a YAML list of papers and upserts each into the local index
under its canonical identity (DOI, or normalized title/author/year). Papers
already present are updated in place, so re-running a file is safe.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var papers []types.AcademicPaper
	if err := yaml.Unmarshal(data, &papers); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}
	if len(papers) == 0 {
		return fmt.Errorf("%s contains no papers", args[0])
	}

	cfg := loadConfig()
	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	var added, updated, failed int
	for _, p := range papers {
		res, err := st.IngestPaper(ctx, p)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			continue
		}
		if res.IsNewPaper {
			added++
		} else {
			updated++
		}
	}

	fmt.Printf("Ingested %d paper(s): %d new, %d updated, %d failed\n",
		len(papers)-failed, added, updated, failed)
	if failed > 0 {
		return fmt.Errorf("%d paper(s) failed ingestion", failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
