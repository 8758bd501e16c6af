package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

// Runner starts a workflow run on behalf of a user. Satisfied by the
// execution service.
type Runner interface {
	Execute(ctx context.Context, workflowID, userID string) (*models.ExecutionRecord, error)
}

// Scheduler discovers schedule-triggered workflows in the store and runs
// one cron trigger per workflow. Scheduled runs execute as the workflow
// owner.
type Scheduler struct {
	persistence persistence.Persistence
	runner      Runner
	logger      *slog.Logger

	mu       sync.Mutex
	triggers map[string]*Trigger
}

func NewScheduler(persistence persistence.Persistence, runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		persistence: persistence,
		runner:      runner,
		logger:      logger.With("module", "scheduler"),
		triggers:    make(map[string]*Trigger),
	}
}

// Start loads every stored workflow and starts a trigger for each one
// whose trigger node is a schedule. Workflows with invalid cron
// expressions are logged and skipped so one bad workflow cannot stall
// the rest.
func (s *Scheduler) Start(ctx context.Context) error {
	workflows, err := s.persistence.Workflows().ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	started := 0

	for _, workflow := range workflows {
		node := workflow.TriggerNode()
		if node == nil || node.Kind != models.NodeKindSchedule {
			continue
		}

		if err := s.startTrigger(ctx, workflow); err != nil {
			s.logger.Error("Failed to start schedule trigger",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		started++
	}

	s.logger.Info("Scheduler started", "workflows", len(workflows), "triggers", started)

	return nil
}

func (s *Scheduler) startTrigger(ctx context.Context, workflow *models.Workflow) error {
	trigger, err := NewTrigger(workflow, s.logger)
	if err != nil {
		return err
	}

	ownerID := workflow.UserID

	callback := func(ctx context.Context, workflowID string) error {
		record, err := s.runner.Execute(ctx, workflowID, ownerID)
		if err != nil {
			return err
		}

		s.logger.Info("Scheduled run finished",
			"workflow_id", workflowID,
			"execution_id", record.ID,
			"status", record.Status,
		)

		return nil
	}

	if err := trigger.Start(ctx, callback); err != nil {
		return err
	}

	s.mu.Lock()
	s.triggers[workflow.ID] = trigger
	s.mu.Unlock()

	return nil
}

// TriggerCount reports how many triggers are currently running.
func (s *Scheduler) TriggerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.triggers)
}

// Stop halts every running trigger. In-flight runs finish on their own.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for workflowID, trigger := range s.triggers {
		if err := trigger.Stop(ctx); err != nil {
			s.logger.Error("Failed to stop trigger", "workflow_id", workflowID, "error", err)
		}
	}

	s.triggers = make(map[string]*Trigger)
	s.logger.Info("Scheduler stopped")
}
