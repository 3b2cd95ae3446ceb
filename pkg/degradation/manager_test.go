package degradation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_HealthyByDefault(t *testing.T) {
	m := New(DefaultConfig())
	assert.Equal(t, Healthy, m.Status())
	assert.Empty(t, m.Report().Subsystems)
}

func TestManager_DegradeThenUnavailablePreservesRecoveryAttempts(t *testing.T) {
	m := New(DefaultConfig())
	m.Degrade(DbWrite, "connection flaky")
	m.RecordRecoveryAttempt(DbWrite)
	m.RecordRecoveryAttempt(DbWrite)
	assert.Equal(t, Degraded, m.Status())

	m.Unavail(DbWrite, "connection lost")
	require.Equal(t, Critical, m.Status())

	snap := m.Report()
	require.Len(t, snap.Subsystems, 1)
	assert.Equal(t, 2, snap.Subsystems[0].RecoveryAttempts)
	assert.Equal(t, LevelUnavailable, snap.Subsystems[0].Level)
	assert.NotEmpty(t, snap.Subsystems[0].AffectedCapabilities)
}

func TestManager_RecoverResetsAttemptsAndClearsEntry(t *testing.T) {
	m := New(DefaultConfig())
	m.Degrade(DbWrite, "x")
	m.RecordRecoveryAttempt(DbWrite)
	m.Recover(DbWrite)

	assert.Equal(t, LevelNormal, m.Level(DbWrite))
	assert.Equal(t, Healthy, m.Status())

	m.Degrade(DbWrite, "y")
	assert.Equal(t, 0, m.Report().Subsystems[0].RecoveryAttempts)
}

func TestManager_RecoverPatternEngineClearsDisabledRules(t *testing.T) {
	m := New(DefaultConfig())
	m.DisableRule("rule-1")
	m.Degrade(PatternEngine, "bad rule")
	require.Len(t, m.DisabledRules(), 1)

	m.Recover(PatternEngine)
	assert.Empty(t, m.DisabledRules())
}

func TestManager_RecoverWorkflowEngineClearsPausedWorkflows(t *testing.T) {
	m := New(DefaultConfig())
	m.PauseWorkflow("wf-1")
	m.Degrade(WorkflowEngine, "stuck")
	require.Len(t, m.PausedWorkflows(), 1)

	m.Recover(WorkflowEngine)
	assert.Empty(t, m.PausedWorkflows())
}

func TestManager_QueuedWritesEvictOldestWhenFull(t *testing.T) {
	m := New(Config{MaxQueuedWrites: 2})
	m.QueueWrite("a", []byte("1"))
	m.QueueWrite("b", []byte("2"))
	m.QueueWrite("c", []byte("3"))

	drained := m.DrainQueuedWrites()
	require.Len(t, drained, 2)
	assert.Equal(t, "b", drained[0].Kind)
	assert.Equal(t, "c", drained[1].Kind)
	assert.Zero(t, m.QueueDepth())
}

func TestManager_DrainQueuedWritesClearsBuffer(t *testing.T) {
	m := New(DefaultConfig())
	m.QueueWrite("a", []byte("1"))
	first := m.DrainQueuedWrites()
	require.Len(t, first, 1)
	assert.Empty(t, m.DrainQueuedWrites())
}

func TestResizeTier_StrictEscalationOrder(t *testing.T) {
	assert.Equal(t, FullQuality, ResizeTier(WatchdogSignals{}))
	assert.Equal(t, QualityReduced, ResizeTier(WatchdogSignals{StalledTotal: 1}))
	assert.Equal(t, CorrectnessGuarded, ResizeTier(WatchdogSignals{StalledTotal: 5, StalledCritical: 1}))
	assert.Equal(t, CorrectnessGuarded, ResizeTier(WatchdogSignals{SafeModeRecommended: true}))
	assert.Equal(t, EmergencyCompatibility, ResizeTier(WatchdogSignals{SafeModeActive: true, StalledTotal: 0}))

	// SafeModeActive wins even when lower-severity signals are also present.
	assert.Equal(t, EmergencyCompatibility, ResizeTier(WatchdogSignals{
		SafeModeActive:      true,
		SafeModeRecommended: true,
		StalledCritical:     3,
		StalledTotal:        10,
	}))
}

func TestSingleton_FailOpenWhenUninitialized(t *testing.T) {
	globalMu.Lock()
	global = nil
	globalMu.Unlock()

	assert.True(t, IsOperational())
	assert.True(t, CanWriteDB())
	assert.Equal(t, Healthy, GlobalStatus())
	assert.Equal(t, Healthy, GlobalReport().Overall)
}

func TestSingleton_InitThenQuery(t *testing.T) {
	m := Init(DefaultConfig())
	m.Unavail(MuxConnection, "socket closed")

	assert.False(t, IsOperational())
	assert.Equal(t, Critical, GlobalStatus())

	globalMu.Lock()
	global = nil
	globalMu.Unlock()
}
