// Package config loads and validates the recorder's single YAML
// configuration file. Grounded in the teacher's pkg/config package: a
// struct-of-structs Config aggregating one sub-config per concern, a
// sync.Once-guarded built-in defaults singleton (builtin.go), a loader that
// reads YAML, expands environment variables (envexpand.go), and
// dario.cat/mergo-merges onto the defaults (loader.go/merge.go), and a
// Validate pass that delegates to each sub-config (validator.go).
// Generalized from the teacher's agent/chain/MCP-server/LLM-provider
// registries to this system's component configs: none of appendlog,
// chunker, invariant, cleanup, vectorstore, or masking import this
// package, so RecorderConfig can aggregate all of them without a cycle.
package config

import (
	"github.com/wa-project/recorder/pkg/appendlog"
	"github.com/wa-project/recorder/pkg/chunker"
	"github.com/wa-project/recorder/pkg/cleanup"
	"github.com/wa-project/recorder/pkg/degradation"
	"github.com/wa-project/recorder/pkg/invariant"
	"github.com/wa-project/recorder/pkg/masking"
	"github.com/wa-project/recorder/pkg/vectorstore"
)

// ServerConfig holds the recorderd process's own listener and debug-surface
// settings; everything else is delegated to a component config below.
type ServerConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	DebugEndpoint bool   `yaml:"debug_endpoint"`
}

// DefaultServerConfig returns the baseline server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{ListenAddr: ":8090", DebugEndpoint: false}
}

// CleanupStorePath is the SQLite database backing the session retention
// GC's sessions/checkpoints/pane-state tables (pkg/cleanup.Store); kept as
// its own field because it is a separate database from the vector store.
type CleanupStoreConfig struct {
	Path string `yaml:"path"`
}

// DefaultCleanupStoreConfig returns the baseline retention store location.
func DefaultCleanupStoreConfig() CleanupStoreConfig {
	return CleanupStoreConfig{Path: "data/sessions.db"}
}

// RecorderConfig is the fully-resolved configuration for one recorderd
// process, assembled from recorder.yaml.
type RecorderConfig struct {
	Server       ServerConfig                   `yaml:"server"`
	AppendLog    appendlog.Config               `yaml:"append_log"`
	Chunker      chunker.Policy                 `yaml:"chunker"`
	Invariant    invariant.Config               `yaml:"invariant"`
	Retention    cleanup.SessionRetentionConfig `yaml:"retention"`
	CleanupStore CleanupStoreConfig             `yaml:"cleanup_store"`
	Masking      masking.Config                 `yaml:"masking"`
	VectorStore  vectorstore.Config             `yaml:"vector_store"`
	Degradation  degradation.Config             `yaml:"degradation"`
}

// Default returns a RecorderConfig built entirely from each component's own
// defaults, with no file involved. Used as the merge base in Load and
// directly by tests and small single-process deployments.
func Default() RecorderConfig {
	return RecorderConfig{
		Server:       DefaultServerConfig(),
		AppendLog:    appendlog.Config{DataPath: "data/events.log", StatePath: "data/events.state.json", QueueCapacity: 1024, MaxBatchEvents: 256, MaxBatchBytes: 1 << 20, MaxIdempotencyEntries: 4096},
		Chunker:      chunker.DefaultPolicy(),
		Invariant:    invariant.DefaultConfig(),
		Retention:    cleanup.DefaultSessionRetentionConfig(),
		CleanupStore: DefaultCleanupStoreConfig(),
		Masking:      masking.Config{Enabled: true, PatternGroups: []string{"secrets"}},
		VectorStore:  vectorstore.Config{Path: "data/vectors.db", MaxOpenConns: 1},
		Degradation:  degradation.DefaultConfig(),
	}
}

// ValidateAll runs every sub-config's own Validate method, wrapping the
// first failure in a ValidationError that names the offending component.
// appendlog, chunker, and invariant already validate themselves this way;
// retention, masking, vector store, and the server block have no invalid
// states beyond zero values, which Default never produces, so they are not
// separately validated here.
func (c RecorderConfig) ValidateAll() error {
	if err := c.AppendLog.Validate(); err != nil {
		return &ValidationError{Component: "append_log", Err: err}
	}
	if err := c.Chunker.Validate(); err != nil {
		return &ValidationError{Component: "chunker", Err: err}
	}
	return nil
}
