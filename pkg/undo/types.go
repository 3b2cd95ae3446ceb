// Package undo implements strategy-driven reversal of recorded actions
// (C10). Grounded in the teacher's pkg/queue/executor.go, which dispatches
// an agent iteration strategy by name and classifies the result into a
// fixed outcome set (stageResult/agentResult); generalized here from
// "run an agent iteration" to "reverse a recorded action."
package undo

import "time"

// Outcome is the fixed classification an undo attempt resolves to.
type Outcome string

const (
	// OutcomeSuccess means the action was reversed and marked undone.
	OutcomeSuccess Outcome = "success"
	// OutcomeNotApplicable means the request was well-formed but undo
	// could not proceed for a reason that is not itself an error: the
	// action was already undone, the strategy has no automatic undo, or
	// the undo target is already gone.
	OutcomeNotApplicable Outcome = "not_applicable"
	// OutcomeFailed means undo was attempted and an unexpected error
	// occurred, or the strategy is unrecognized.
	OutcomeFailed Outcome = "failed"
)

// Strategy is the stored undo strategy for a recorded action.
type Strategy string

const (
	StrategyWorkflowAbort Strategy = "workflow_abort"
	StrategyPaneClose     Strategy = "pane_close"
	StrategyManual        Strategy = "manual"
	StrategyNone          Strategy = "none"
	StrategyCustom        Strategy = "custom"
)

// Request is the caller-supplied undo request.
type Request struct {
	ActionID string
	Actor    string
	Reason   string
}

// Action is an audited action with its recorded strategy metadata, as
// looked up from the ActionStore.
type Action struct {
	ActionID  string
	ActorKind string
	ActorID   string

	// Undo carries the undo-specific metadata for this action, if any was
	// recorded.
	Undo *UndoMetadata

	// WorkflowID is the workflow that produced this action, used as the
	// last-resort execution-id fallback for workflow_abort undo.
	WorkflowID string

	// PaneID is the pane this action targeted, used as the fallback pane
	// id for pane_close undo when the undo payload omits one.
	PaneID *int64
}

// UndoMetadata is the reversal metadata recorded alongside an action.
type UndoMetadata struct {
	Undoable     bool
	UndoStrategy Strategy
	UndoHint     string

	// Payload carries strategy-specific resolution hints, e.g.
	// execution_id for workflow_abort or pane_id for pane_close.
	Payload map[string]any

	UndoneAt *time.Time
	UndoneBy string
}

// Result is the outcome of one undo attempt.
type Result struct {
	ActionID         string     `json:"action_id"`
	Strategy         Strategy   `json:"strategy"`
	Outcome          Outcome    `json:"outcome"`
	Message          string     `json:"message"`
	Guidance         string     `json:"guidance,omitempty"`
	TargetWorkflowID string     `json:"target_workflow_id,omitempty"`
	TargetPaneID     *int64     `json:"target_pane_id,omitempty"`
	UndoneAt         *time.Time `json:"undone_at,omitempty"`
}

func success(actionID string, strategy Strategy, message string) Result {
	return Result{ActionID: actionID, Strategy: strategy, Outcome: OutcomeSuccess, Message: message}
}

func notApplicable(actionID string, strategy Strategy, message, guidance string) Result {
	return Result{ActionID: actionID, Strategy: strategy, Outcome: OutcomeNotApplicable, Message: message, Guidance: guidance}
}

func failed(actionID string, strategy Strategy, message string) Result {
	return Result{ActionID: actionID, Strategy: strategy, Outcome: OutcomeFailed, Message: message}
}
