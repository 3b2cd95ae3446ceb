package undo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeWorkflowRunner struct {
	result AbortResult
	err    error
	gotID  string
}

func (f *fakeWorkflowRunner) AbortExecution(_ context.Context, executionID, _ string, _ bool) (AbortResult, error) {
	f.gotID = executionID
	return f.result, f.err
}

type fakeTerminal struct {
	getErr  error
	killErr error
}

func (f *fakeTerminal) GetPane(_ context.Context, _ int64) error  { return f.getErr }
func (f *fakeTerminal) KillPane(_ context.Context, _ int64) error { return f.killErr }

func newTestExecutor(store *MemActionStore, wf WorkflowRunner, term TerminalInterface) *Executor {
	e := NewExecutor(store, wf, term)
	e.now = func() time.Time { return time.Unix(1000, 0) }
	return e
}

func TestExecuteActionNotFound(t *testing.T) {
	store := NewMemActionStore()
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "missing"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNotApplicable, result.Outcome)
	require.Contains(t, result.Message, "not found")
}

func TestExecuteNoUndoMetadata(t *testing.T) {
	store := NewMemActionStore()
	store.Put(Action{ActionID: "a1"})
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNotApplicable, result.Outcome)
	require.Contains(t, result.Message, "No undo metadata")
}

func TestExecuteNotUndoable(t *testing.T) {
	store := NewMemActionStore()
	store.Put(Action{ActionID: "a1", Undo: &UndoMetadata{Undoable: false, UndoHint: "see docs"}})
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNotApplicable, result.Outcome)
	require.Equal(t, "see docs", result.Guidance)
}

func TestExecuteAlreadyUndoneDoesNotMutate(t *testing.T) {
	store := NewMemActionStore()
	already := time.Unix(500, 0)
	store.Put(Action{ActionID: "a1", Undo: &UndoMetadata{
		Undoable: true, UndoStrategy: StrategyPaneClose, UndoneAt: &already, UndoneBy: "alice",
	}})
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1", Actor: "bob"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNotApplicable, result.Outcome)
	require.Contains(t, result.Message, "already been undone")

	action, err := store.GetAction(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, already, *action.Undo.UndoneAt)
	require.Equal(t, "alice", action.Undo.UndoneBy)
}

func TestExecuteWorkflowAbortSuccess(t *testing.T) {
	store := NewMemActionStore()
	store.Put(Action{
		ActionID: "a1", ActorKind: "workflow", ActorID: "exec-123",
		Undo: &UndoMetadata{Undoable: true, UndoStrategy: StrategyWorkflowAbort},
	})
	wf := &fakeWorkflowRunner{result: AbortResult{Aborted: true}}
	e := newTestExecutor(store, wf, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1", Actor: "bob"})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Equal(t, "exec-123", wf.gotID)
	require.Equal(t, "exec-123", result.TargetWorkflowID)
	require.NotNil(t, result.UndoneAt)

	action, _ := store.GetAction(context.Background(), "a1")
	require.NotNil(t, action.Undo.UndoneAt)
	require.Equal(t, "bob", action.Undo.UndoneBy)
}

func TestExecuteWorkflowAbortPayloadExecutionIDWins(t *testing.T) {
	store := NewMemActionStore()
	store.Put(Action{
		ActionID: "a1", ActorKind: "workflow", ActorID: "exec-fallback",
		Undo: &UndoMetadata{
			Undoable: true, UndoStrategy: StrategyWorkflowAbort,
			Payload: map[string]any{"execution_id": "exec-from-payload"},
		},
	})
	wf := &fakeWorkflowRunner{result: AbortResult{Aborted: true}}
	e := newTestExecutor(store, wf, &fakeTerminal{})

	_, err := e.Execute(context.Background(), Request{ActionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, "exec-from-payload", wf.gotID)
}

func TestExecuteWorkflowAbortNonTerminalIsNotApplicable(t *testing.T) {
	store := NewMemActionStore()
	store.Put(Action{
		ActionID: "a1", WorkflowID: "wf-1",
		Undo: &UndoMetadata{Undoable: true, UndoStrategy: StrategyWorkflowAbort},
	})
	wf := &fakeWorkflowRunner{result: AbortResult{Aborted: false, Reason: "already completed"}}
	e := newTestExecutor(store, wf, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNotApplicable, result.Outcome)
	require.Contains(t, result.Message, "already completed")
}

func TestExecuteWorkflowAbortNoExecutionID(t *testing.T) {
	store := NewMemActionStore()
	store.Put(Action{
		ActionID: "a1",
		Undo:     &UndoMetadata{Undoable: true, UndoStrategy: StrategyWorkflowAbort},
	})
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNotApplicable, result.Outcome)
	require.Contains(t, result.Message, "execution ID")
}

func TestExecutePaneCloseSuccess(t *testing.T) {
	paneID := int64(55)
	store := NewMemActionStore()
	store.Put(Action{
		ActionID: "a1",
		Undo: &UndoMetadata{
			Undoable: true, UndoStrategy: StrategyPaneClose,
			Payload: map[string]any{"pane_id": float64(55)},
		},
	})
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1", Actor: "bob"})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Equal(t, &paneID, result.TargetPaneID)
}

func TestExecutePaneCloseFallsBackToActionPaneID(t *testing.T) {
	paneID := int64(7)
	store := NewMemActionStore()
	store.Put(Action{
		ActionID: "a1", PaneID: &paneID,
		Undo: &UndoMetadata{Undoable: true, UndoStrategy: StrategyPaneClose},
	})
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, result.Outcome)
}

func TestExecutePaneCloseAlreadyGoneAtProbe(t *testing.T) {
	paneID := int64(55)
	store := NewMemActionStore()
	store.Put(Action{
		ActionID: "a1",
		Undo: &UndoMetadata{
			Undoable: true, UndoStrategy: StrategyPaneClose,
			Payload: map[string]any{"pane_id": paneID},
		},
	})
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{getErr: ErrPaneNotFound})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNotApplicable, result.Outcome)
	require.Contains(t, result.Message, "no longer exists")
}

func TestExecutePaneCloseAlreadyGoneAtKill(t *testing.T) {
	paneID := int64(55)
	store := NewMemActionStore()
	store.Put(Action{
		ActionID: "a1",
		Undo: &UndoMetadata{
			Undoable: true, UndoStrategy: StrategyPaneClose,
			Payload: map[string]any{"pane_id": paneID},
		},
	})
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{killErr: ErrPaneNotFound})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNotApplicable, result.Outcome)
	require.Contains(t, result.Message, "already closed")
}

func TestExecuteManualStrategyIsNotApplicable(t *testing.T) {
	for _, strategy := range []Strategy{StrategyManual, StrategyNone, StrategyCustom} {
		store := NewMemActionStore()
		store.Put(Action{ActionID: "a1", Undo: &UndoMetadata{Undoable: true, UndoStrategy: strategy, UndoHint: "ask a human"}})
		e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{})

		result, err := e.Execute(context.Background(), Request{ActionID: "a1"})
		require.NoError(t, err)
		require.Equal(t, OutcomeNotApplicable, result.Outcome, "strategy %s", strategy)
		require.Equal(t, "ask a human", result.Guidance)
	}
}

func TestExecuteUnknownStrategyFails(t *testing.T) {
	store := NewMemActionStore()
	store.Put(Action{ActionID: "a1", Undo: &UndoMetadata{Undoable: true, UndoStrategy: "mystery"}})
	e := newTestExecutor(store, &fakeWorkflowRunner{}, &fakeTerminal{})

	result, err := e.Execute(context.Background(), Request{ActionID: "a1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, result.Outcome)
	require.Contains(t, result.Message, "Unknown undo strategy")
}
