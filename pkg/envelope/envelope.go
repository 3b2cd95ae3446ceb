package envelope

import (
	"errors"
	"time"

	"github.com/wa-project/recorder/pkg/version"
)

// mcpVersion is the envelope schema version, distinct from the binary's own
// version string.
const mcpVersion = "v1"

// Envelope is the canonical response shape every boundary-facing wrapper
// returns, per spec §6. data is deliberately `any` — each operation fills
// it with its own result type.
type Envelope struct {
	OK         bool   `json:"ok"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Hint       string `json:"hint,omitempty"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	Version    string `json:"version"`
	Now        int64  `json:"now"`
	MCPVersion string `json:"mcp_version"`
}

// Ok builds a successful envelope carrying data, with elapsed measured
// against started.
func Ok(data any, started time.Time) Envelope {
	now := time.Now()
	return Envelope{
		OK:         true,
		Data:       data,
		ElapsedMs:  now.Sub(started).Milliseconds(),
		Version:    version.Full(),
		Now:        now.UnixMilli(),
		MCPVersion: mcpVersion,
	}
}

// Fail builds a failed envelope from err, with elapsed measured against
// started. Non-*Error causes are reported as an internal backend-unavailable
// failure so every path still carries a stable code.
func Fail(err error, started time.Time) Envelope {
	now := time.Now()
	env := Envelope{
		OK:         false,
		ElapsedMs:  now.Sub(started).Milliseconds(),
		Version:    version.Full(),
		Now:        now.UnixMilli(),
		MCPVersion: mcpVersion,
	}
	var typed *Error
	if errors.As(err, &typed) {
		env.Error = typed.Error()
		env.ErrorCode = string(typed.Code)
		env.Hint = typed.Hint
		return env
	}
	env.Error = err.Error()
	env.ErrorCode = string(CodeBackendUnavailable)
	return env
}
