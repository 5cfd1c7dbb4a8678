package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

// Profile is one saved criteria set re-run on a schedule.
type Profile struct {
	Name     string                `yaml:"name"`
	Schedule string                `yaml:"schedule"`
	Criteria domain.SearchCriteria `yaml:"criteria"`
}

// ReportSaver persists a finished report. Implemented by the store.
type ReportSaver interface {
	SaveReport(ctx context.Context, profile string, r *domain.Report) error
}

// Scheduler re-runs saved criteria profiles on their cron schedules and
// persists the resulting reports.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *Orchestrator
	saver        ReportSaver
	log          *slog.Logger
}

// NewScheduler registers every profile with the cron runner. An invalid
// schedule expression fails construction.
func NewScheduler(
	orchestrator *Orchestrator,
	saver ReportSaver,
	profiles []Profile,
	log *slog.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:         cron.New(),
		orchestrator: orchestrator,
		saver:        saver,
		log:          log.With("component", "scheduler"),
	}

	for _, p := range profiles {
		if _, err := s.cron.AddFunc(p.Schedule, func() { s.runProfile(p) }); err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}

	return s, nil
}

// Start begins running scheduled profiles.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "profiles", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runProfile(p Profile) {
	ctx := context.Background()
	s.log.Info("scheduled analysis starting", "profile", p.Name)

	report, err := s.orchestrator.Run(ctx, &p.Criteria)
	if err != nil {
		s.log.Error("scheduled analysis failed", "profile", p.Name, "error", err)
		return
	}

	if s.saver != nil {
		if err := s.saver.SaveReport(ctx, p.Name, &report); err != nil {
			s.log.Error("report save failed", "profile", p.Name, "error", err)
		}
	}

	s.log.Info("scheduled analysis complete",
		"profile", p.Name,
		"report_id", report.ID,
		"passed", report.PassedCount)
}
