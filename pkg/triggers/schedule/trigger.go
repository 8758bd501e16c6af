// Package schedule fires workflow runs on cron ticks. A trigger wraps a
// single workflow's schedule node; the scheduler manages one trigger per
// schedule-triggered workflow in the store.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/hookline/hookline/pkg/models"
)

// Callback is invoked on every cron tick for the trigger's workflow.
type Callback func(ctx context.Context, workflowID string) error

// Trigger runs one workflow's cron schedule.
type Trigger struct {
	WorkflowID string
	CronExpr   string

	cron     *cron.Cron
	callback Callback
	logger   *slog.Logger
}

// NewTrigger builds a trigger from a workflow's schedule trigger node.
func NewTrigger(workflow *models.Workflow, logger *slog.Logger) (*Trigger, error) {
	node := workflow.TriggerNode()
	if node == nil || node.Kind != models.NodeKindSchedule {
		return nil, errors.New("workflow has no schedule trigger node")
	}

	if node.Metadata.Schedule == nil {
		return nil, models.ErrMetadataMissing
	}

	trigger := &Trigger{
		WorkflowID: workflow.ID,
		CronExpr:   node.Metadata.Schedule.Cron,
		logger: logger.With(
			"workflow_id", workflow.ID,
			"cron", node.Metadata.Schedule.Cron,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.CronExpr == "" {
		return errors.New("schedule trigger cron expression is required")
	}

	if _, err := cron.ParseStandard(t.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

// Start registers the cron job and begins ticking. Overlapping runs of
// the same workflow are skipped rather than queued.
func (t *Trigger) Start(ctx context.Context, callback Callback) error {
	t.logger.Info("Starting schedule trigger")
	t.callback = callback

	t.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := t.cron.AddFunc(t.CronExpr, t.run); err != nil {
		return fmt.Errorf("failed to add cron job for workflow %s: %w", t.WorkflowID, err)
	}

	t.cron.Start()

	return nil
}

func (t *Trigger) run() {
	t.logger.Info("Cron tick fired")

	go func() {
		if err := t.callback(context.Background(), t.WorkflowID); err != nil {
			t.logger.Error("Scheduled run failed", "error", err)
		}
	}()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.Info("Stopping schedule trigger")

	if t.cron != nil {
		t.cron.Stop()
	}

	return nil
}
