package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/candidate-matcher/internal/matching"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Enrich every candidate of the candidates file",
	Run: func(_ *cobra.Command, _ []string) {
		process()
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func process() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := bootstrap()
	defer logger.Sync()

	e, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the matcher", zap.Error(err))
	}
	defer e.Close()

	candidates := e.repo.Candidates()
	if len(candidates) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates found"), zap.String("file", config.Data.CandidatesFile))
		return
	}

	results := e.service.ProcessCandidates(ctx, candidates)
	for _, r := range results {
		fmt.Printf("%s\t%s\n", r.ID, r)
	}

	sum := matching.Summarize(results)
	fmt.Printf("\nenriched: %d, cached: %d, failed: %d\n", sum.Enriched, sum.Cached, sum.Failed)
	e.logStats(logger)
}
