package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dohyunlee/proplens/internal/config"
	"github.com/dohyunlee/proplens/internal/pipeline"
	"github.com/dohyunlee/proplens/internal/store"
	"github.com/dohyunlee/proplens/pkg/logger"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

var analyzeProfile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a one-shot analysis for a configured profile",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeProfile, "profile", "", "profile name from the config file")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	profile, err := pickProfile(cfg, analyzeProfile)
	if err != nil {
		return err
	}

	orchestrator, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	report, err := orchestrator.Run(ctx, &profile.Criteria)
	if err != nil {
		return fmt.Errorf("running analysis: %w", err)
	}

	if cfg.Database.Enabled() {
		if err := saveReport(ctx, cfg, profile.Name, &report); err != nil {
			log.Warn("saving report failed", "error", err)
		}
	}

	if jsonOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(&report)
	return nil
}

func pickProfile(cfg *config.Config, name string) (*pipeline.Profile, error) {
	if len(cfg.Profiles) == 0 {
		return nil, fmt.Errorf("no profiles configured in %s", cfgFile)
	}

	if name == "" {
		if len(cfg.Profiles) == 1 {
			return &cfg.Profiles[0], nil
		}
		return nil, fmt.Errorf("multiple profiles configured, pick one with --profile")
	}

	for i := range cfg.Profiles {
		if cfg.Profiles[i].Name == name {
			return &cfg.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile %q not found in %s", name, cfgFile)
}

func saveReport(ctx context.Context, cfg *config.Config, profile string, r *domain.Report) error {
	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	return st.SaveReport(ctx, profile, r)
}

func printReport(r *domain.Report) {
	fmt.Println(r.Summary)
	fmt.Println()

	for _, insight := range r.Insights {
		fmt.Println("  • " + insight)
	}
	if len(r.Insights) > 0 {
		fmt.Println()
	}

	for _, rec := range r.Recommendations {
		rank := 0
		score := 0.0
		if rec.ScoreResult != nil {
			score = rec.ScoreResult.TotalScore
			if rec.ScoreResult.Rank != nil {
				rank = *rec.ScoreResult.Rank
			}
		}
		fmt.Printf("%d. %s — %.1f점\n", rank, rec.Listing.Title, score)
		if rec.RiskResult != nil && len(rec.RiskResult.Risks) > 0 {
			fmt.Printf("   리스크 %d점 (%d건)\n", rec.RiskResult.RiskScore, len(rec.RiskResult.Risks))
		}
		if rec.QuestionResult != nil {
			for _, q := range rec.QuestionResult.Questions {
				fmt.Println("   ? " + q)
			}
		}
		fmt.Println("   " + rec.Listing.URL)
	}
}
