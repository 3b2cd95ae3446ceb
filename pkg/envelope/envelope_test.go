package envelope

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOk_CarriesData(t *testing.T) {
	started := time.Now().Add(-5 * time.Millisecond)
	env := Ok(map[string]int{"hits": 3}, started)
	assert.True(t, env.OK)
	assert.Empty(t, env.ErrorCode)
	assert.GreaterOrEqual(t, env.ElapsedMs, int64(0))
	assert.Equal(t, mcpVersion, env.MCPVersion)
}

func TestFail_TypedError_PreservesStableCode(t *testing.T) {
	started := time.Now()
	err := New(KindTerminalData, CodePolicy, "chunk policy mismatch").WithHint("recheck chunk_policy_version")
	env := Fail(err, started)
	assert.False(t, env.OK)
	assert.Equal(t, string(CodePolicy), env.ErrorCode)
	assert.Equal(t, "recheck chunk_policy_version", env.Hint)
}

func TestFail_UntypedError_FallsBackToBackendUnavailable(t *testing.T) {
	env := Fail(errors.New("boom"), time.Now())
	assert.False(t, env.OK)
	assert.Equal(t, string(CodeBackendUnavailable), env.ErrorCode)
}
