package undo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Executor dispatches undo requests against the recorded strategy for an
// action. It never mutates anything except through ActionStore.MarkUndone,
// and only on the success path.
type Executor struct {
	actions   ActionStore
	workflows WorkflowRunner
	terminal  TerminalInterface
	now       func() time.Time
}

// NewExecutor constructs an Executor backed by the given collaborators.
func NewExecutor(actions ActionStore, workflows WorkflowRunner, terminal TerminalInterface) *Executor {
	return &Executor{actions: actions, workflows: workflows, terminal: terminal, now: time.Now}
}

// Execute resolves req.ActionID's undo metadata and dispatches on its
// recorded strategy.
func (e *Executor) Execute(ctx context.Context, req Request) (Result, error) {
	action, err := e.actions.GetAction(ctx, req.ActionID)
	if err != nil {
		return Result{}, fmt.Errorf("look up action %s: %w", req.ActionID, err)
	}
	if action == nil {
		return notApplicable(req.ActionID, "", fmt.Sprintf("action %s not found", req.ActionID),
			"Use the action history to list valid action IDs."), nil
	}

	undo := action.Undo
	if undo == nil {
		return notApplicable(req.ActionID, "", "No undo metadata recorded for this action",
			"This action predates undo metadata, or was recorded as non-undoable."), nil
	}

	if !undo.Undoable {
		return notApplicable(req.ActionID, undo.UndoStrategy, "Action is not currently undoable", undo.UndoHint), nil
	}

	if undo.UndoneAt != nil {
		return notApplicable(req.ActionID, undo.UndoStrategy, "Action has already been undone", ""), nil
	}

	switch undo.UndoStrategy {
	case StrategyWorkflowAbort:
		return e.executeWorkflowAbort(ctx, req, action, undo)
	case StrategyPaneClose:
		return e.executePaneClose(ctx, req, action, undo)
	case StrategyManual, StrategyNone, StrategyCustom:
		return notApplicable(req.ActionID, undo.UndoStrategy,
			"Automatic undo is not supported for this strategy", undo.UndoHint), nil
	default:
		return failed(req.ActionID, undo.UndoStrategy,
			fmt.Sprintf("Unknown undo strategy %q", undo.UndoStrategy)), nil
	}
}

func (e *Executor) executeWorkflowAbort(ctx context.Context, req Request, action *Action, undo *UndoMetadata) (Result, error) {
	executionID := executionIDFromUndo(undo, action)
	if executionID == "" {
		return notApplicable(req.ActionID, StrategyWorkflowAbort,
			"Undo payload did not contain a workflow execution ID", ""), nil
	}

	res := notApplicable(req.ActionID, StrategyWorkflowAbort, "", "")
	res.TargetWorkflowID = executionID

	abortResult, err := e.workflows.AbortExecution(ctx, executionID, req.Reason, false)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Message = fmt.Sprintf("Failed to abort workflow %s: %v", executionID, err)
		return res, nil
	}
	if !abortResult.Aborted {
		res.Message = fmt.Sprintf("Workflow %s is not undoable in current state (%s)", executionID, abortResult.Reason)
		return res, nil
	}

	undoneAt, err := e.markUndone(ctx, req, undo)
	if err != nil {
		return Result{}, err
	}
	res.Outcome = OutcomeSuccess
	res.Message = fmt.Sprintf("Aborted workflow %s", executionID)
	res.UndoneAt = &undoneAt
	return res, nil
}

func (e *Executor) executePaneClose(ctx context.Context, req Request, action *Action, undo *UndoMetadata) (Result, error) {
	paneID := paneIDFromUndo(undo)
	if paneID == nil {
		paneID = action.PaneID
	}
	if paneID == nil {
		return notApplicable(req.ActionID, StrategyPaneClose,
			"Undo payload did not contain a pane ID", ""), nil
	}

	res := notApplicable(req.ActionID, StrategyPaneClose, "", "")
	res.TargetPaneID = paneID

	if err := e.terminal.GetPane(ctx, *paneID); err != nil {
		if errors.Is(err, ErrPaneNotFound) {
			res.Message = fmt.Sprintf("Pane %d no longer exists", *paneID)
			return res, nil
		}
		res.Outcome = OutcomeFailed
		res.Message = fmt.Sprintf("Failed to validate pane %d: %v", *paneID, err)
		return res, nil
	}

	if err := e.terminal.KillPane(ctx, *paneID); err != nil {
		if errors.Is(err, ErrPaneNotFound) {
			res.Message = fmt.Sprintf("Pane %d was already closed", *paneID)
			return res, nil
		}
		res.Outcome = OutcomeFailed
		res.Message = fmt.Sprintf("Failed to close pane %d: %v", *paneID, err)
		return res, nil
	}

	undoneAt, err := e.markUndone(ctx, req, undo)
	if err != nil {
		return Result{}, err
	}
	res.Outcome = OutcomeSuccess
	res.Message = fmt.Sprintf("Closed pane %d", *paneID)
	res.UndoneAt = &undoneAt
	return res, nil
}

func (e *Executor) markUndone(ctx context.Context, req Request, undo *UndoMetadata) (time.Time, error) {
	at, ok, err := e.actions.MarkUndone(ctx, req.ActionID, req.Actor, e.now())
	if err != nil {
		return time.Time{}, fmt.Errorf("mark action %s undone: %w", req.ActionID, err)
	}
	if !ok {
		// Concurrently undone by another caller between our check and the
		// mutation; fall back to whatever the store already has.
		if undo.UndoneAt != nil {
			return *undo.UndoneAt, nil
		}
		return e.now(), nil
	}
	return at, nil
}

// executionIDFromUndo resolves a workflow_abort target in priority order:
// the undo payload's execution_id, then the action's actor_id when the
// action was itself taken by a workflow, then the action's workflow_id.
func executionIDFromUndo(undo *UndoMetadata, action *Action) string {
	if id, ok := undo.Payload["execution_id"].(string); ok && id != "" {
		return id
	}
	if action.ActorKind == "workflow" && action.ActorID != "" {
		return action.ActorID
	}
	return action.WorkflowID
}

// paneIDFromUndo resolves a pane_close target from the undo payload only;
// the caller falls back to the action's recorded pane id.
func paneIDFromUndo(undo *UndoMetadata) *int64 {
	raw, ok := undo.Payload["pane_id"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case int64:
		return &v
	case float64:
		id := int64(v)
		return &id
	case int:
		id := int64(v)
		return &id
	default:
		return nil
	}
}
