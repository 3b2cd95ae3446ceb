package undo

import (
	"context"
	"time"
)

// AbortResult is what a WorkflowRunner reports for an abort attempt.
type AbortResult struct {
	Aborted bool
	// Reason explains a non-terminal refusal (Aborted == false, err == nil).
	Reason string
}

// WorkflowRunner aborts a running workflow execution. The recorder's
// workflow engine (out of scope here) implements this.
type WorkflowRunner interface {
	AbortExecution(ctx context.Context, executionID, reason string, force bool) (AbortResult, error)
}

// ErrPaneNotFound is returned by TerminalInterface when a pane id does not
// resolve to a live pane.
var ErrPaneNotFound = errPaneNotFound{}

type errPaneNotFound struct{}

func (errPaneNotFound) Error() string { return "pane not found" }

// TerminalInterface probes and closes multiplexer panes. The host
// multiplexer bridge (out of scope here) implements this.
type TerminalInterface interface {
	GetPane(ctx context.Context, paneID int64) error
	KillPane(ctx context.Context, paneID int64) error
}

// ActionStore looks up audited actions and records undo completion.
type ActionStore interface {
	GetAction(ctx context.Context, actionID string) (*Action, error)
	// MarkUndone records the action as undone by actor at the given time
	// and returns the recorded undone_at. If the action was concurrently
	// undone by another caller, ok is false and err is nil.
	MarkUndone(ctx context.Context, actionID, actor string, at time.Time) (undoneAt time.Time, ok bool, err error)
}
