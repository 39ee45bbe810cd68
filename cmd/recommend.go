package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/candidate-matcher/internal/records"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank candidates for a job of the jobs file",
	Run: func(cmd *cobra.Command, _ []string) {
		recommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().String("job-id", "", "job to rank candidates for. Without it a job is selected interactively.")
	recommendCmd.Flags().IntP("top-k", "k", 0, "number of candidates to print (default is matching.default-top-k)")
}

func recommend(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := bootstrap()
	defer logger.Sync()

	jobID, _ := cmd.Flags().GetString("job-id")
	topK, _ := cmd.Flags().GetInt("top-k")

	e, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the matcher", zap.Error(err))
	}
	defer e.Close()

	if jobID == "" {
		jobID, err = selectJob(e.repo.Jobs())
		if err != nil {
			logger.Fatal("selecting a job", zap.Error(err))
		}
	}

	rec, err := e.service.Recommend(ctx, jobID, topK)
	if err != nil {
		logger.Fatal("ranking candidates", zap.String("job_id", jobID), zap.Error(err))
	}

	if len(rec.Results) == 0 {
		logger.Info("no candidates passed the keyword filter", zap.String("job_id", rec.JobID))
	}

	for i, r := range rec.Results {
		fmt.Printf("%3d. %-12s combined=%.3f keyword=%.3f vector=%.3f\n",
			i+1, r.CandidateID, r.CombinedScore, r.KeywordScore, r.VectorScore)
	}
	e.logStats(logger)
}

func selectJob(jobs []records.RawJob) (string, error) {
	if len(jobs) == 0 {
		return "", errors.New("there are no jobs to choose from")
	}

	items := make([]string, 0, len(jobs))
	for _, j := range jobs {
		label := j.ID.String() + " " + j.JobTitle
		if j.CompanyName != "" {
			label += " (" + j.CompanyName + ")"
		}
		items = append(items, label)
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: items,
		Size:  10,
	}

	_, selected, err := jobPrompt.Run()
	if err != nil {
		return "", err
	}

	id := strings.Split(selected, " ")[0]
	if id == "" {
		return "", fmt.Errorf("cannot parse job id from %q", selected)
	}
	return id, nil
}
