// Package orchestrator implements the Agent Orchestrator described in
// spec.md §4.3: it drives one execution instance of a workflow end to
// end — variable resolution, step dispatch, per-step timeout/retry,
// conditional branching, rollback on failure, mandate issuance for
// payment-class steps, streaming status events, and persistence of the
// terminal result.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/meowstack/agentflow/internal/clock"
	"github.com/meowstack/agentflow/internal/config"
	"github.com/meowstack/agentflow/internal/engine"
	"github.com/meowstack/agentflow/internal/errors"
	"github.com/meowstack/agentflow/internal/eventbus"
	"github.com/meowstack/agentflow/internal/exprlang"
	"github.com/meowstack/agentflow/internal/logging"
	"github.com/meowstack/agentflow/internal/mandate"
	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
	"github.com/meowstack/agentflow/internal/signer"
	"github.com/meowstack/agentflow/internal/store"
)

// Orchestrator runs Executions of workflows. Every collaborator is an
// explicit constructor argument (spec.md §9: "cross-cutting singletons
// should be explicit dependencies"); none of them is process-global state.
type Orchestrator struct {
	store    store.Store
	registry *registry.Registry
	engine   *engine.Engine
	bus      eventbus.EventBus
	clock    clock.Clock
	mandates *mandate.Manager
	signer   signer.Signer
	metrics  *Metrics
	tracer   Tracer
	log      *slog.Logger
	cfg      config.OrchestratorConfig

	limiter    *rate.Limiter
	breakers   *breakerRegistry
	otelTracer trace.Tracer

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// New constructs an Orchestrator. mgr and sgn may both be nil if no
// workflow in this deployment drives payment mandates; metrics and tracer
// may be nil (a nil Metrics is a no-op, nil Tracer defaults to NullTracer).
func New(
	st store.Store,
	reg *registry.Registry,
	eng *engine.Engine,
	bus eventbus.EventBus,
	clk clock.Clock,
	mgr *mandate.Manager,
	sgn signer.Signer,
	metrics *Metrics,
	tracer Tracer,
	cfg config.OrchestratorConfig,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = logging.NewDefault()
	}
	if tracer == nil {
		tracer = NullTracer{}
	}
	var limiter *rate.Limiter
	if cfg.MaxExecutionsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxExecutionsPerSecond), 1)
	}
	return &Orchestrator{
		store:      st,
		registry:   reg,
		engine:     eng,
		bus:        bus,
		clock:      clk,
		mandates:   mgr,
		signer:     sgn,
		metrics:    metrics,
		tracer:     tracer,
		log:        log,
		cfg:        cfg,
		limiter:    limiter,
		breakers:   newBreakerRegistry(),
		otelTracer: otel.Tracer("github.com/meowstack/agentflow/internal/orchestrator"),
		running:    make(map[string]context.CancelFunc),
	}
}

// Execute validates and orders workflow, then drives one Execution of it
// to a terminal state. The Workflow itself is passed in rather than loaded
// by id: workflow persistence is an external collaborator (spec.md §1),
// so the caller (the out-of-scope HTTP surface, or a test) is responsible
// for loading the authored Workflow before calling Execute.
func (o *Orchestrator) Execute(ctx context.Context, workflow *model.Workflow, agentID, tenantID string, execContext model.ExecutionContext, initialVariables map[string]any) (*model.Execution, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(errors.CodeCancelled, "waiting for execution rate limit", err)
		}
	}

	validation := o.engine.Validate(workflow)
	if !validation.OK {
		return nil, errors.Validation(workflow.ID, validation.Errors)
	}
	if _, err := o.engine.Order(workflow); err != nil {
		return nil, errors.Wrapf(errors.CodeValidation, err, "ordering workflow %s", workflow.ID)
	}

	executionID := uuid.NewString()
	now := o.clock.Now()
	exec := model.NewExecution(executionID, agentID, tenantID, workflow.ID, execContext, now)
	exec.Variables = mergeVariables(workflow.Variables, execContext, initialVariables)

	if err := exec.Start(); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "starting execution", err)
	}
	if err := o.store.SaveExecution(ctx, exec); err != nil {
		return nil, errors.StoreUnavailable("save_execution", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.running[executionID] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.running, executionID)
		o.mu.Unlock()
		cancel()
	}()

	o.publish(eventbus.ExecutionStarted, agentID, executionID, "", exec.Status, 0, nil, "")
	o.tracer.Log(TraceEntry{Action: TraceActionStarted, ExecutionID: executionID, Timestamp: now})

	// execDeadline is the overall execution deadline spec.md §5 derives
	// from constraints.timeLimit.maxExecutionTime (falling back to the
	// orchestrator-wide default); zero means unbounded. It's threaded down
	// through run/dispatchStep/invokeTool rather than enforced through a
	// separate context/timer so it stays deterministic under clock.Fake.
	var execDeadline time.Time
	if maxExecTime := workflow.EffectiveMaxExecutionTime(o.cfg.DefaultMaxExecutionTime); maxExecTime > 0 {
		execDeadline = now.Add(maxExecTime)
	}

	hook := newMandateHook(o.mandates, o.signer)
	completed, failure := o.run(runCtx, workflow, exec, hook, tenantID, execDeadline)

	endedAt := o.clock.Now()
	status := model.ExecutionCompleted
	if !completed {
		status = model.ExecutionFailed
	}
	if runCtx.Err() != nil && failure == nil {
		status = model.ExecutionCancelled
	}

	if err := exec.Finish(status, endedAt, failure); err != nil {
		o.log.Error("execution finish transition rejected", "execution_id", executionID, "error", err)
	}
	exec.Metrics = computeMetrics(exec, endedAt)

	if err := o.store.UpdateExecution(ctx, executionID, store.ExecutionPatch{
		Status:         &exec.Status,
		EndedAt:        exec.EndedAt,
		MandateChainID: &hook.chainID,
		FailureReason:  exec.FailureReason,
		Metrics:        exec.Metrics,
	}); err != nil {
		o.log.Error("persisting execution finalization failed", "execution_id", executionID, "error", err)
	}
	exec.MandateChainID = hook.chainID

	o.recordAgentMetrics(ctx, agentID, exec.Metrics)

	kind := eventbus.ExecutionCompleted
	errStr := ""
	if status != model.ExecutionCompleted {
		kind = eventbus.ExecutionFailed
		if failure != nil {
			errStr = failure.Message
		}
	}
	o.publish(kind, agentID, executionID, "", status, 0, nil, errStr)
	o.tracer.Log(TraceEntry{Action: TraceActionFinalized, ExecutionID: executionID, Timestamp: endedAt,
		Details: map[string]any{"status": string(status)}})
	o.metrics.observeExecution(string(status), endedAt.Sub(exec.StartedAt).Seconds())

	return exec, nil
}

// Cancel flips the cancellation signal for a running execution. It
// returns store.ErrNotFound if the execution isn't currently running
// under this Orchestrator instance (either unknown or already terminal).
func (o *Orchestrator) Cancel(executionID string) error {
	o.mu.Lock()
	cancel, ok := o.running[executionID]
	o.mu.Unlock()
	if !ok {
		return store.ErrNotFound
	}
	cancel()
	return nil
}

// Subscribe exposes the EventBus subscription for agentID (and, if
// non-empty, the specific executionID): the Orchestrator is EventBus's
// publisher, not its owner.
func (o *Orchestrator) Subscribe(agentID, executionID string) (<-chan eventbus.Event, func()) {
	return o.bus.Subscribe(agentID, executionID)
}

// run drives the step graph to completion. It returns completed=true when
// the execution reaches a natural end (no next step) with no unresolved
// failure, and a non-nil FailureReason when it terminates FAILED. execDeadline
// is the overall execution deadline (spec.md §5); zero means unbounded.
func (o *Orchestrator) run(ctx context.Context, workflow *model.Workflow, exec *model.Execution, hook *mandateHook, tenantID string, execDeadline time.Time) (bool, *model.FailureReason) {
	current := workflow.Trigger()
	if current == nil {
		return false, &model.FailureReason{Kind: "ValidationError", Message: "workflow has no trigger step"}
	}

	loopBound := o.effectiveLoopBound(workflow)
	var completedStepIDs []string // in execution order, for rollback

	for current != nil {
		select {
		case <-ctx.Done():
			o.skipRemaining(ctx, exec, workflow)
			return false, nil
		default:
		}

		if !execDeadline.IsZero() && !o.clock.Now().Before(execDeadline) {
			if current.ErrorPolicy.Kind == model.PolicyRollback {
				o.rollback(ctx, workflow, exec, hook, tenantID, completedStepIDs)
			}
			o.skipRemaining(ctx, exec, workflow)
			return false, &model.FailureReason{Kind: "ExecutionDeadlineExceeded", Message: "execution exceeded its max execution time", StepID: current.ID}
		}

		visits := exec.RecordVisit(current.ID)
		if visits > loopBound {
			return false, &model.FailureReason{
				Kind:    "ConstraintViolation",
				Message: fmt.Sprintf("loop bound %d exceeded at step %s", loopBound, current.ID),
				StepID:  current.ID,
			}
		}

		if current.Kind == model.StepCondition {
			nextID, err := o.dispatchCondition(ctx, exec, current)
			if err != nil {
				return false, &model.FailureReason{Kind: "ValidationError", Message: err.Error(), StepID: current.ID}
			}
			completedStepIDs = append(completedStepIDs, current.ID)
			current = advance(workflow, nextID)
			continue
		}

		outcome := o.dispatchStep(ctx, exec, current, hook, tenantID, execDeadline)
		if outcome.stepID != "" {
			completedStepIDs = append(completedStepIDs, outcome.stepID)
		}

		if outcome.executionDeadlineExceeded {
			if current.ErrorPolicy.Kind == model.PolicyRollback {
				o.rollback(ctx, workflow, exec, hook, tenantID, completedStepIDs)
			}
			o.skipRemaining(ctx, exec, workflow)
			return false, outcome.failure
		}

		if outcome.cancelled {
			o.skipRemaining(ctx, exec, workflow)
			return false, nil
		}

		if !outcome.failed {
			current = advance(workflow, current.Successors.OnSuccess)
			continue
		}

		switch current.ErrorPolicy.Kind {
		case model.PolicyContinue:
			nextID := current.Successors.OnFailure
			if nextID == "" {
				nextID = current.Successors.OnSuccess
			}
			current = advance(workflow, nextID)
			continue

		case model.PolicyRollback:
			o.rollback(ctx, workflow, exec, hook, tenantID, completedStepIDs)
			return false, outcome.failure

		default: // STOP, and RETRY after exhausting attempts
			return false, outcome.failure
		}
	}

	o.skipRemaining(ctx, exec, workflow)
	return true, nil
}

// dispatchCondition evaluates a CONDITION step's branch table directly
// against the variable scope (CONDITION steps carry no tool). The first
// truthy expression wins; absent a match, onSuccess is the fallback edge.
func (o *Orchestrator) dispatchCondition(ctx context.Context, exec *model.Execution, step *model.Step) (string, error) {
	scope := exprlang.Scope(exec.Variables)
	started := o.clock.Now()
	result := &model.StepResult{StepID: step.ID, Status: model.StepResultRunning, StartedAt: started, Attempts: 1}
	exec.StepResults = append(exec.StepResults, result)
	o.publish(eventbus.StepUpdate, exec.AgentID, exec.ExecutionID, step.ID, model.StepResultRunning, 1, nil, "")

	for _, cond := range step.Successors.Conditional {
		match, err := evaluateCondition(cond.Expression, scope)
		o.tracer.Log(TraceEntry{Action: TraceActionConditionEval, ExecutionID: exec.ExecutionID, StepID: step.ID,
			Details: map[string]any{"expression": cond.Expression, "matched": match}})
		if err != nil {
			return "", fmt.Errorf("evaluating condition %q on step %s: %w", cond.Expression, step.ID, err)
		}
		if match {
			finishStepResult(result, o.clock.Now(), model.StepResultCompleted, cond.TargetID, nil)
			o.commitStepResult(ctx, exec, result)
			o.publish(eventbus.StepUpdate, exec.AgentID, exec.ExecutionID, step.ID, model.StepResultCompleted, 1, cond.TargetID, "")
			return cond.TargetID, nil
		}
	}
	finishStepResult(result, o.clock.Now(), model.StepResultCompleted, nil, nil)
	o.commitStepResult(ctx, exec, result)
	o.publish(eventbus.StepUpdate, exec.AgentID, exec.ExecutionID, step.ID, model.StepResultCompleted, 1, nil, "")
	return step.Successors.OnSuccess, nil
}

type stepOutcome struct {
	stepID                    string
	failed                    bool
	cancelled                 bool
	executionDeadlineExceeded bool
	failure                   *model.FailureReason
}

// dispatchStep resolves parameters, invokes the step's tool (retrying per
// its error policy), and records the StepResult. TRIGGER, ACTION, and
// APPROVAL steps all flow through here; only CONDITION is handled
// separately since it has no tool to invoke.
func (o *Orchestrator) dispatchStep(ctx context.Context, exec *model.Execution, step *model.Step, hook *mandateHook, tenantID string, execDeadline time.Time) stepOutcome {
	scope := exprlang.Scope(exec.Variables)
	params, _, err := exprlang.ResolveParameters(step.Parameters, scope)
	if err != nil {
		reason := &model.FailureReason{Kind: "ValidationError", Message: err.Error(), StepID: step.ID}
		o.recordFailedResult(ctx, exec, step.ID, 1, reason)
		return stepOutcome{stepID: step.ID, failed: true, failure: reason}
	}

	if step.ToolID == "" {
		// A tool-less step (rare outside CONDITION) trivially succeeds.
		result := newStepResult(step.ID, o.clock.Now())
		finishStepResult(result, o.clock.Now(), model.StepResultCompleted, nil, nil)
		exec.StepResults = append(exec.StepResults, result)
		o.commitStepResult(ctx, exec, result)
		exec.Variables["steps."+step.ID] = nil
		return stepOutcome{stepID: step.ID}
	}

	tool, err := o.registry.Get(step.ToolID)
	if err != nil {
		reason := &model.FailureReason{Kind: "ToolNotFound", Message: err.Error(), StepID: step.ID}
		o.recordFailedResult(ctx, exec, step.ID, 1, reason)
		return stepOutcome{stepID: step.ID, failed: true, failure: reason}
	}
	if problems, err := o.registry.ValidateParameters(step.ToolID, params); err != nil || len(problems) > 0 {
		msg := "parameter validation failed"
		if err != nil {
			msg = err.Error()
		}
		reason := &model.FailureReason{Kind: "ValidationError", Message: msg, StepID: step.ID}
		o.recordFailedResult(ctx, exec, step.ID, 1, reason)
		return stepOutcome{stepID: step.ID, failed: true, failure: reason}
	}

	maxAttempts := 1
	if step.ErrorPolicy.Kind == model.PolicyRetry {
		maxAttempts = step.ErrorPolicy.MaxRetries + 1
	}

	paying := isPaymentTool(step.ToolID)
	if paying {
		if _, err := hook.beforePayment(ctx, tenantID, step.ID, params); err != nil {
			reason := &model.FailureReason{Kind: "ConstraintViolation", Message: err.Error(), StepID: step.ID}
			o.recordFailedResult(ctx, exec, step.ID, 1, reason)
			return stepOutcome{stepID: step.ID, failed: true, failure: reason}
		}
	}

	started := o.clock.Now()
	result := newStepResult(step.ID, started)
	exec.StepResults = append(exec.StepResults, result)

	var (
		output           any
		lastErr          error
		timedOut         bool
		cancelled        bool
		deadlineExceeded bool
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		o.publish(eventbus.StepUpdate, exec.AgentID, exec.ExecutionID, step.ID, model.StepResultRunning, attempt, nil, "")
		o.tracer.Log(TraceEntry{Action: TraceActionStepDispatch, ExecutionID: exec.ExecutionID, StepID: step.ID, ToolID: step.ToolID, Attempt: attempt})

		output, lastErr, timedOut, cancelled, deadlineExceeded = o.invokeTool(ctx, exec, step, tool, params, execDeadline)
		if lastErr == nil {
			break
		}
		if cancelled || deadlineExceeded {
			break
		}
		if attempt < maxAttempts {
			o.metrics.countRetry(step.ToolID)
			o.tracer.Log(TraceEntry{Action: TraceActionRetry, ExecutionID: exec.ExecutionID, StepID: step.ID, ToolID: step.ToolID, Attempt: attempt, Error: lastErr.Error()})
			o.publish(eventbus.StepUpdate, exec.AgentID, exec.ExecutionID, step.ID, model.StepResultFailed, attempt, nil, lastErr.Error())
			o.clock.Sleep(backoffDelay(attempt))
		}
	}

	endedAt := o.clock.Now()
	o.metrics.observeStep(step.ToolID, endedAt.Sub(started).Seconds())

	if deadlineExceeded {
		reason := &model.FailureReason{Kind: "ExecutionDeadlineExceeded", Message: "execution exceeded its max execution time", StepID: step.ID, Attempts: result.Attempts}
		finishStepResult(result, endedAt, model.StepResultFailed, nil, reason)
		o.commitStepResult(ctx, exec, result)
		o.publish(eventbus.StepUpdate, exec.AgentID, exec.ExecutionID, step.ID, model.StepResultFailed, result.Attempts, nil, reason.Message)
		return stepOutcome{stepID: step.ID, executionDeadlineExceeded: true, failure: reason}
	}

	if cancelled {
		finishStepResult(result, endedAt, model.StepResultFailed, nil, &model.FailureReason{Kind: "Cancelled", Message: "execution cancelled", StepID: step.ID})
		o.commitStepResult(ctx, exec, result)
		return stepOutcome{stepID: step.ID, cancelled: true}
	}

	if lastErr != nil {
		kind := "ToolExecutionError"
		if timedOut {
			kind = "Timeout"
		}
		reason := &model.FailureReason{Kind: kind, Message: lastErr.Error(), StepID: step.ID, Attempts: result.Attempts}
		finishStepResult(result, endedAt, model.StepResultFailed, nil, reason)
		o.commitStepResult(ctx, exec, result)
		o.publish(eventbus.StepUpdate, exec.AgentID, exec.ExecutionID, step.ID, model.StepResultFailed, result.Attempts, nil, lastErr.Error())
		return stepOutcome{stepID: step.ID, failed: true, failure: reason}
	}

	finishStepResult(result, endedAt, model.StepResultCompleted, output, nil)
	o.commitStepResult(ctx, exec, result)
	exec.Variables["steps."+step.ID] = output
	o.publish(eventbus.StepUpdate, exec.AgentID, exec.ExecutionID, step.ID, model.StepResultCompleted, result.Attempts, output, "")

	if paying {
		if err := hook.afterPaymentSuccess(ctx, step.ID); err != nil {
			o.log.Error("marking payment mandate executed failed", "step_id", step.ID, "error", err)
		}
	}

	return stepOutcome{stepID: step.ID}
}

// invokeTool runs a single attempt of tool.Execute under a deadline derived
// from min(step.timeout, remaining execDeadline) (spec.md §5), optionally
// through a per-tool circuit breaker. The deadline race uses the
// Orchestrator's clock (not context.WithDeadline) so it's deterministic
// under clock.Fake in tests. The returned deadlineExceeded is true only when
// the clamp (not the step's own timeout) is what fired, so callers can
// finalize the whole execution as FAILED/ExecutionDeadlineExceeded instead
// of treating it as a retryable step timeout.
func (o *Orchestrator) invokeTool(ctx context.Context, exec *model.Execution, step *model.Step, tool registry.Tool, params map[string]any, execDeadline time.Time) (output any, err error, timedOut bool, cancelled bool, deadlineExceeded bool) {
	spanCtx, span := o.otelTracer.Start(ctx, "step."+step.ToolID, trace.WithAttributes(
		attribute.String("step.id", step.ID),
		attribute.String("tool.id", step.ToolID),
		attribute.String("execution.id", exec.ExecutionID),
	))
	defer span.End()

	now := o.clock.Now()
	timeout := time.Duration(step.TimeoutMS) * time.Millisecond
	clamped := false
	if !execDeadline.IsZero() {
		if remaining := execDeadline.Sub(now); remaining < timeout {
			timeout = remaining
			if timeout < 0 {
				timeout = 0
			}
			clamped = true
		}
	}
	deadline := now.Add(timeout)
	runCtx := registry.RunContext{
		Context:     spanCtx,
		ExecutionID: exec.ExecutionID,
		TenantID:    exec.TenantID,
		UserID:      "",
		StepID:      step.ID,
		Deadline:    deadline,
	}

	execute := func() (any, error) { return tool.Execute(params, runCtx) }
	if cb := o.breakers.forTool(step.ToolID); cb != nil {
		wrapped := execute
		execute = func() (any, error) {
			return cb.Execute(func() (interface{}, error) { return wrapped() })
		}
	}

	// Register the timeout waiter before starting the tool goroutine, so a
	// test driving a clock.Fake can't advance past the deadline before it's
	// actually registered to receive it.
	timeoutCh := o.clock.After(timeout)

	type toolResult struct {
		output any
		err    error
	}
	resultCh := make(chan toolResult, 1)
	go func() {
		out, execErr := execute()
		resultCh <- toolResult{out, execErr}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			span.RecordError(res.err)
			span.SetStatus(codes.Error, res.err.Error())
		}
		return res.output, res.err, false, false, false
	case <-timeoutCh:
		if clamped {
			deadlineErr := errors.ExecutionDeadlineExceeded(exec.ExecutionID, timeout)
			span.RecordError(deadlineErr)
			span.SetStatus(codes.Error, "execution deadline exceeded")
			return nil, deadlineErr, false, false, true
		}
		timeoutErr := errors.Timeout(step.ID, deadline.Format(time.RFC3339))
		span.RecordError(timeoutErr)
		span.SetStatus(codes.Error, "timeout")
		return nil, timeoutErr, true, false, false
	case <-ctx.Done():
		cancelErr := errors.Cancelled(exec.ExecutionID)
		span.SetStatus(codes.Error, "cancelled")
		return nil, cancelErr, false, true, false
	}
}

// rollback walks completedStepIDs in reverse, invoking each step's
// rollback (if its tool implements one) under a fresh deadline, and
// compensating any payment mandate with a CANCELLATION. Rollback failures
// are logged, not fatal: every compensation is attempted regardless of
// earlier ones failing (spec.md §4.3).
func (o *Orchestrator) rollback(ctx context.Context, workflow *model.Workflow, exec *model.Execution, hook *mandateHook, tenantID string, completedStepIDs []string) {
	deadline := o.cfg.DefaultRollbackDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}

	for i := len(completedStepIDs) - 1; i >= 0; i-- {
		stepID := completedStepIDs[i]
		step := workflow.StepByID(stepID)
		if step == nil || step.ToolID == "" {
			continue
		}
		tool, err := o.registry.Get(step.ToolID)
		if err != nil {
			continue
		}
		rollbackTool, ok := tool.(registry.RollbackTool)

		result := exec.StepResultByID(stepID)
		var output any
		if result != nil {
			output = result.Output
		}

		if ok && result != nil && result.Status == model.StepResultCompleted {
			runCtx := registry.RunContext{
				Context:     ctx,
				ExecutionID: exec.ExecutionID,
				TenantID:    exec.TenantID,
				StepID:      stepID,
				Deadline:    o.clock.Now().Add(deadline),
			}
			if err := rollbackTool.Rollback(nil, output, runCtx); err != nil {
				o.log.Error("rollback failed", "step_id", stepID, "tool_id", step.ToolID, "error", err)
			} else {
				o.metrics.countRollback(step.ToolID)
			}
			o.tracer.Log(TraceEntry{Action: TraceActionRollback, ExecutionID: exec.ExecutionID, StepID: stepID, ToolID: step.ToolID})
		}

		if isPaymentTool(step.ToolID) {
			if err := hook.cancel(ctx, tenantID, stepID, "rollback"); err != nil {
				o.log.Error("mandate cancellation failed", "step_id", stepID, "error", err)
			}
		}
	}
}

// skipRemaining marks every step not yet visited as SKIPPED and commits
// each one, so a Store reload after an early termination (deadline,
// cancellation, STOP policy) sees the full step set accounted for rather
// than silently missing entries for steps that never ran.
func (o *Orchestrator) skipRemaining(ctx context.Context, exec *model.Execution, workflow *model.Workflow) {
	visited := make(map[string]bool, len(exec.StepResults))
	for _, r := range exec.StepResults {
		visited[r.StepID] = true
	}
	now := o.clock.Now()
	for _, s := range workflow.Steps {
		if visited[s.ID] {
			continue
		}
		result := &model.StepResult{
			StepID: s.ID, Status: model.StepResultSkipped, StartedAt: now, EndedAt: &now, Attempts: 0,
		}
		exec.StepResults = append(exec.StepResults, result)
		o.commitStepResult(ctx, exec, result)
	}
}

func (o *Orchestrator) effectiveLoopBound(workflow *model.Workflow) int {
	if workflow.LoopBound > 0 {
		return workflow.LoopBound
	}
	if o.cfg.DefaultLoopBound > 0 {
		return o.cfg.DefaultLoopBound
	}
	return workflow.EffectiveLoopBound()
}

func (o *Orchestrator) publish(kind eventbus.Kind, agentID, executionID, stepID string, status any, attempts int, output any, errStr string) {
	o.bus.Publish(eventbus.Event{
		Kind:        kind,
		AgentID:     agentID,
		ExecutionID: executionID,
		StepID:      stepID,
		Status:      fmt.Sprintf("%v", status),
		Attempts:    attempts,
		Output:      output,
		Error:       errStr,
		Timestamp:   o.clock.Now(),
	})
}

func (o *Orchestrator) recordFailedResult(ctx context.Context, exec *model.Execution, stepID string, attempts int, reason *model.FailureReason) {
	now := o.clock.Now()
	result := &model.StepResult{
		StepID: stepID, Status: model.StepResultFailed, StartedAt: now, EndedAt: &now, Attempts: attempts, Error: reason,
	}
	exec.StepResults = append(exec.StepResults, result)
	o.commitStepResult(ctx, exec, result)
	o.publish(eventbus.StepUpdate, exec.AgentID, exec.ExecutionID, stepID, model.StepResultFailed, attempts, nil, reason.Message)
}

// commitStepResult persists a single step's result as its own logical write
// (spec.md §5: "a step commit is a single logical write"), independent of
// the terminal UpdateExecution the caller issues at finalize. Without this,
// a Redis-backed Store would lose all in-flight step progress until the
// execution reaches a terminal state; the event bus publish alongside each
// call only reaches a live subscriber, it isn't durable. Failures are
// logged, not fatal, matching the rest of the Orchestrator's store-write
// error handling.
func (o *Orchestrator) commitStepResult(ctx context.Context, exec *model.Execution, result *model.StepResult) {
	if err := o.store.UpdateExecution(ctx, exec.ExecutionID, store.ExecutionPatch{StepResult: result}); err != nil {
		o.log.Error("persisting step result failed", "execution_id", exec.ExecutionID, "step_id", result.StepID, "error", err)
	}
}

func (o *Orchestrator) recordAgentMetrics(ctx context.Context, agentID string, metrics *model.ExecutionMetrics) {
	if metrics == nil {
		return
	}
	agent, err := o.store.LoadAgent(ctx, agentID)
	if err != nil {
		agent = &model.Agent{AgentID: agentID}
	}
	agent.AddExecutionMetrics(*metrics)
	if err := o.store.SaveAgent(ctx, agent); err != nil {
		o.log.Error("saving agent metrics failed", "agent_id", agentID, "error", err)
	}
}

func advance(workflow *model.Workflow, nextID string) *model.Step {
	if nextID == "" {
		return nil
	}
	return workflow.StepByID(nextID)
}

func newStepResult(stepID string, startedAt time.Time) *model.StepResult {
	return &model.StepResult{StepID: stepID, Status: model.StepResultRunning, StartedAt: startedAt, Attempts: 1}
}

func finishStepResult(result *model.StepResult, endedAt time.Time, status model.StepResultStatus, output any, reason *model.FailureReason) {
	result.Status = status
	result.EndedAt = &endedAt
	result.Output = output
	result.Error = reason
}

func computeMetrics(exec *model.Execution, endedAt time.Time) *model.ExecutionMetrics {
	m := &model.ExecutionMetrics{DurationMS: endedAt.Sub(exec.StartedAt).Milliseconds()}
	for _, r := range exec.StepResults {
		m.TotalSteps++
		switch r.Status {
		case model.StepResultCompleted:
			m.CompletedSteps++
		case model.StepResultFailed:
			m.FailedSteps++
		}
		if cost, ok := extractCost(r.Output); ok {
			m.CostAccumulated += cost
		}
	}
	return m
}

// extractCost looks for a "cost" field on a tool's structured output, the
// convention spec.md §4.3 relies on to accumulate costAccumulated.
func extractCost(output any) (float64, bool) {
	m, ok := output.(map[string]any)
	if !ok {
		return 0, false
	}
	switch c := m["cost"].(type) {
	case float64:
		return c, true
	case int:
		return float64(c), true
	}
	return 0, false
}

// mergeVariables seeds an execution's variable store from workflow
// defaults, then the immutable context, then explicit initial variables,
// each layer overriding the last (spec.md §4.3).
func mergeVariables(workflowVars map[string]any, execContext model.ExecutionContext, initial map[string]any) map[string]any {
	out := make(map[string]any, len(workflowVars)+len(execContext)+len(initial))
	for k, v := range workflowVars {
		out[k] = v
	}
	for k, v := range execContext {
		out[k] = v
	}
	for k, v := range initial {
		out[k] = v
	}
	return out
}
