package runcontroller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/haasonsaas/orchkernel/internal/vfs"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler runs auto-triggered workflows (front-matter `trigger: auto`) on
// their declared cron schedule. It is separate from Controller's
// synchronous Run*/ResumeWorkflow methods: a Scheduler just calls
// Controller.RunWorkflow on a timer.
type Scheduler struct {
	controller *Controller
	cron       *cron.Cron
	logger     *slog.Logger
}

// NewScheduler builds a Scheduler bound to c.
func NewScheduler(c *Controller, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		controller: c,
		cron:       cron.New(cron.WithParser(cronParser)),
		logger:     logger,
	}
}

// LoadAutoWorkflows scans the VFS "workflows/" prefix, parses every file,
// and registers an auto-triggered one's CronSchedule as a job. Parse or
// registration failures for one workflow are logged and skipped rather than
// aborting the whole load.
func (s *Scheduler) LoadAutoWorkflows(store vfs.VFS) error {
	for _, p := range store.List("workflows/") {
		if !strings.HasSuffix(p, ".md") {
			continue
		}
		if err := s.registerIfAuto(store, p); err != nil {
			s.logger.Warn("runcontroller: skipping workflow schedule", "path", p, "error", err)
		}
	}
	return nil
}

func (s *Scheduler) registerIfAuto(store vfs.VFS, path string) error {
	raw, ok := store.Read(path)
	if !ok {
		return fmt.Errorf("workflow disappeared before scheduling")
	}
	def, err := s.controller.loadWorkflowDefFromContent(path, raw)
	if err != nil {
		return err
	}
	if def.Trigger != "auto" || def.CronSchedule == "" {
		return nil
	}

	workflowPath := path
	_, err = s.cron.AddFunc(def.CronSchedule, func() {
		ctx := context.Background()
		if _, err := s.controller.RunWorkflow(ctx, workflowPath); err != nil {
			s.logger.Error("runcontroller: scheduled workflow run failed", "path", workflowPath, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", def.CronSchedule, err)
	}
	return nil
}

// Start begins dispatching scheduled workflow runs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }
