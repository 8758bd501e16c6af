// Package engine orchestrates workflow runs: it loads and validates the
// graph, snapshots credentials, dispatches action nodes with bounded
// concurrency and retry, and finalizes the execution record.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hookline/hookline/pkg/credentials"
	"github.com/hookline/hookline/pkg/dispatch"
	"github.com/hookline/hookline/pkg/eventbus"
	"github.com/hookline/hookline/pkg/events"
	"github.com/hookline/hookline/pkg/graph"
	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/otelhelper"
	"github.com/hookline/hookline/pkg/persistence"
	"github.com/hookline/hookline/pkg/registry"
)

const defaultConcurrency = 4

var defaultRetryDelays = []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond}

// Config carries the collaborators a run needs. Persistence, Resolver
// and Registry are required; the rest are optional.
type Config struct {
	Logger      *slog.Logger
	Persistence persistence.Persistence
	Resolver    credentials.Resolver
	Registry    *registry.Registry

	// EventBus receives run lifecycle events when set.
	EventBus eventbus.EventBus

	// Lock serializes runs per workflow when set. Runs of the same
	// workflow are independent otherwise.
	Lock RunLock

	// Concurrency bounds simultaneous dispatches within one run.
	Concurrency int

	// RetryDelays is the backoff schedule for transport failures. Its
	// length is the number of extra attempts after the first.
	RetryDelays []time.Duration

	Tracer trace.Tracer
}

type Engine struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	resolver    credentials.Resolver
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	lock        RunLock
	concurrency int
	retryDelays []time.Duration
	tracer      trace.Tracer
}

func New(config Config) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	retryDelays := config.RetryDelays
	if retryDelays == nil {
		retryDelays = defaultRetryDelays
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Engine{
		logger:      logger.With("module", "engine"),
		persistence: config.Persistence,
		resolver:    config.Resolver,
		registry:    config.Registry,
		eventBus:    config.EventBus,
		lock:        config.Lock,
		concurrency: concurrency,
		retryDelays: retryDelays,
		tracer:      tracer,
	}
}

// Run executes one workflow on behalf of callerUserID and returns the
// finalized execution record.
//
// Structural failures before any dispatch (workflow not found, foreign
// workflow, lock held) return an error and no record. Failures after the
// record exists (invalid graph, missing credential, node failures) are
// reported through the record's status, never as a raw error.
func (e *Engine) Run(ctx context.Context, workflowID, callerUserID string) (*models.ExecutionRecord, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.run",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.UserIDKey, callerUserID),
	)
	defer span.End()

	workflow, err := e.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if workflow.UserID != callerUserID {
		forbiddenErr := &ForbiddenError{UserID: callerUserID, WorkflowID: workflowID}
		otelhelper.SetError(span, forbiddenErr)

		return nil, forbiddenErr
	}

	if e.lock != nil {
		release, lockErr := e.lock.Acquire(ctx, workflowID)
		if lockErr != nil {
			otelhelper.SetError(span, lockErr)

			return nil, lockErr
		}

		defer release()
	}

	record := &models.ExecutionRecord{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		UserID:     callerUserID,
		Status:     models.RunStatusPending,
		StartedAt:  time.Now().UTC(),
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, record.ID))

	if err := e.persistence.Executions().Save(ctx, record); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	workflowGraph, err := graph.Build(workflow.Nodes, workflow.Edges)
	if err != nil {
		return e.failBeforeDispatch(ctx, record, err), nil
	}

	record.Warnings = workflowGraph.Warnings()

	record.Status = models.RunStatusResolving
	e.saveTransition(ctx, record)

	snapshot, err := credentials.Snapshot(ctx, e.resolver, callerUserID, workflowGraph.CredentialKinds())
	if err != nil {
		return e.failBeforeDispatch(ctx, record, err), nil
	}

	nodes := workflowGraph.OrderedActionNodes()

	record.Status = models.RunStatusRunning
	e.saveTransition(ctx, record)

	e.publish(ctx, events.RunStarted{
		BaseEvent:   events.NewBaseEvent(events.RunStartedEvent, workflowID),
		ExecutionID: record.ID,
		UserID:      callerUserID,
		NodeCount:   len(nodes),
	})

	e.dispatchAll(ctx, record, nodes, snapshot)

	if record.Status == models.RunStatusSucceeded {
		if err := e.persistence.Workflows().MarkExecuted(context.WithoutCancel(ctx), workflowID); err != nil {
			e.logger.Warn("Failed to mark workflow executed", "workflow_id", workflowID, "error", err)
		}
	}

	e.publish(ctx, events.RunFinished{
		BaseEvent:   events.NewBaseEvent(events.RunFinishedEvent, workflowID),
		ExecutionID: record.ID,
		Status:      record.Status,
		DurationMs:  durationMs(record),
		Succeeded:   countOutcomes(record, models.OutcomeSucceeded),
		Failed:      countOutcomes(record, models.OutcomeFailed),
	})

	e.logger.Info("Run finished",
		"workflow_id", workflowID,
		"execution_id", record.ID,
		"status", record.Status,
		"outcomes", len(record.Outcomes))

	return record, nil
}

// runState guards the outcome slots while dispatch goroutines report
// in. Once finalized, late outcomes go to the stored record only; the
// record returned to the caller is never touched again.
type runState struct {
	mu        sync.Mutex
	outcomes  []*models.NodeOutcome
	finalized bool
}

func (e *Engine) dispatchAll(ctx context.Context, record *models.ExecutionRecord, nodes []*models.Node, snapshot map[models.CredentialKind]*models.Credential) {
	state := &runState{outcomes: make([]*models.NodeOutcome, len(nodes))}

	semaphore := make(chan struct{}, e.concurrency)

	var wg sync.WaitGroup

	// Dispatches keep running after caller cancellation; only issuing
	// new ones stops.
	detached := context.WithoutCancel(ctx)

issuing:
	for i, node := range nodes {
		select {
		case <-ctx.Done():
			break issuing
		case semaphore <- struct{}{}:
		}

		wg.Add(1)

		go func(index int, node *models.Node) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcome := e.dispatchWithRetry(ctx, detached, record, node, snapshot)

			state.mu.Lock()
			if state.finalized {
				state.mu.Unlock()
				e.appendLateOutcome(detached, record.ID, outcome)

				return
			}
			state.outcomes[index] = &outcome
			state.mu.Unlock()
		}(i, node)
	}

	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	for _, outcome := range state.outcomes {
		if outcome != nil {
			record.Outcomes = append(record.Outcomes, *outcome)
		}
	}

	e.finalize(detached, record)

	state.finalized = true
}

func (e *Engine) dispatchWithRetry(parent, detached context.Context, record *models.ExecutionRecord, node *models.Node, snapshot map[models.CredentialKind]*models.Credential) models.NodeOutcome {
	outcome := models.NodeOutcome{NodeID: node.ID, Kind: node.Kind}

	dispatcher, err := e.registry.DispatcherFor(node.Kind)
	if err != nil {
		outcome.Status = models.OutcomeFailed
		outcome.Detail = err.Error()
		outcome.Attempts = 1
		outcome.FinishedAt = time.Now().UTC()

		e.publishNodeOutcome(detached, record, outcome, err)

		return outcome
	}

	credentialKind, _ := models.CredentialKindFor(node.Kind)
	credential := snapshot[credentialKind]

	var lastErr error

	for attempt := 0; attempt <= len(e.retryDelays); attempt++ {
		outcome.Attempts++

		spanCtx, span := otelhelper.StartSpan(detached, e.tracer, "engine.dispatch",
			attribute.String(otelhelper.ExecutionIDKey, record.ID),
			attribute.String(otelhelper.NodeIDKey, node.ID),
			attribute.String(otelhelper.NodeKindKey, string(node.Kind)),
			attribute.Int(otelhelper.AttemptKey, outcome.Attempts),
		)

		started := time.Now()
		result, dispatchErr := dispatcher.Dispatch(spanCtx, node, credential)
		outcome.Duration += time.Since(started)

		if dispatchErr == nil {
			span.End()

			outcome.Status = models.OutcomeSucceeded
			outcome.Detail = result.Detail
			outcome.FinishedAt = time.Now().UTC()

			e.publishNodeOutcome(detached, record, outcome, nil)

			return outcome
		}

		otelhelper.SetError(span, dispatchErr)
		span.End()

		lastErr = dispatchErr

		e.logger.Warn("Node dispatch failed",
			"execution_id", record.ID,
			"node_id", node.ID,
			"attempt", outcome.Attempts,
			"error", dispatchErr)

		if !dispatch.IsTransportError(dispatchErr) || attempt == len(e.retryDelays) {
			break
		}

		select {
		case <-parent.Done():
			// Cancelled between attempts; a retry counts as a new
			// dispatch and is not issued.
			attempt = len(e.retryDelays)
		case <-time.After(e.retryDelays[attempt]):
		}

		if parent.Err() != nil {
			break
		}
	}

	outcome.Status = models.OutcomeFailed
	outcome.Detail = lastErr.Error()
	outcome.FinishedAt = time.Now().UTC()

	e.publishNodeOutcome(detached, record, outcome, lastErr)

	return outcome
}

// appendLateOutcome records the outcome of a dispatch that outlived the
// caller's cancellation. The stored record gets the append; its status
// and the record already returned to the caller stay untouched.
func (e *Engine) appendLateOutcome(ctx context.Context, executionID string, outcome models.NodeOutcome) {
	stored, err := e.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		e.logger.Warn("Failed to load record for late outcome",
			"execution_id", executionID, "node_id", outcome.NodeID, "error", err)

		return
	}

	stored.Outcomes = append(stored.Outcomes, outcome)
	e.saveTransition(ctx, stored)
}

// failBeforeDispatch finalizes a run that aborted structurally with
// zero dispatches.
func (e *Engine) failBeforeDispatch(ctx context.Context, record *models.ExecutionRecord, cause error) *models.ExecutionRecord {
	record.Error = cause.Error()

	e.finalize(context.WithoutCancel(ctx), record)

	e.publish(ctx, events.RunFailed{
		BaseEvent:   events.NewBaseEvent(events.RunFailedEvent, record.WorkflowID),
		ExecutionID: record.ID,
		Error:       record.Error,
	})

	e.logger.Warn("Run aborted before dispatch",
		"workflow_id", record.WorkflowID,
		"execution_id", record.ID,
		"error", cause)

	return record
}

func (e *Engine) finalize(ctx context.Context, record *models.ExecutionRecord) {
	record.Status = record.Aggregate()

	finishedAt := time.Now().UTC()
	record.FinishedAt = &finishedAt

	e.saveTransition(ctx, record)
}

func (e *Engine) saveTransition(ctx context.Context, record *models.ExecutionRecord) {
	if err := e.persistence.Executions().Save(ctx, record); err != nil {
		e.logger.Warn("Failed to persist execution record",
			"execution_id", record.ID, "status", record.Status, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, string(event.GetType()), event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) publishNodeOutcome(ctx context.Context, record *models.ExecutionRecord, outcome models.NodeOutcome, cause error) {
	if e.eventBus == nil {
		return
	}

	if cause == nil {
		e.publish(ctx, events.NodeSucceeded{
			BaseEvent:   events.NewBaseEvent(events.NodeSucceededEvent, record.WorkflowID),
			ExecutionID: record.ID,
			NodeID:      outcome.NodeID,
			Kind:        outcome.Kind,
			Attempts:    outcome.Attempts,
			DurationMs:  outcome.Duration.Milliseconds(),
		})

		return
	}

	e.publish(ctx, events.NodeFailed{
		BaseEvent:   events.NewBaseEvent(events.NodeFailedEvent, record.WorkflowID),
		ExecutionID: record.ID,
		NodeID:      outcome.NodeID,
		Kind:        outcome.Kind,
		Attempts:    outcome.Attempts,
		Error:       cause.Error(),
	})
}

func durationMs(record *models.ExecutionRecord) int64 {
	if record.FinishedAt == nil {
		return 0
	}

	return record.FinishedAt.Sub(record.StartedAt).Milliseconds()
}

func countOutcomes(record *models.ExecutionRecord, status models.OutcomeStatus) int {
	count := 0

	for _, outcome := range record.Outcomes {
		if outcome.Status == status {
			count++
		}
	}

	return count
}
