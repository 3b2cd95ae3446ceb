package appendlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wa-project/recorder/pkg/envelope"
	"github.com/wa-project/recorder/pkg/recorder"
)

// AppendRequest is one caller-submitted batch.
type AppendRequest struct {
	BatchID            string
	Events             []recorder.Event
	RequiredDurability Durability
	ProducerTsMs       int64
}

// AppendResponse is the outcome of a committed (or idempotently replayed)
// append call.
type AppendResponse struct {
	Backend             string     `json:"backend"`
	AcceptedCount       uint64     `json:"accepted_count"`
	FirstOffset         recorder.Offset `json:"first_offset"`
	LastOffset          recorder.Offset `json:"last_offset"`
	CommittedDurability Durability `json:"committed_durability"`
	CommittedAtMs       int64      `json:"committed_at_ms"`
}

// CheckpointOutcome classifies the result of CommitCheckpoint.
type CheckpointOutcome string

const (
	Advanced             CheckpointOutcome = "advanced"
	NoopAlreadyAdvanced  CheckpointOutcome = "noop_already_advanced"
)

// HealthReport is returned by Health.
type HealthReport struct {
	Backend      string `json:"backend"`
	Degraded     bool   `json:"degraded"`
	QueueDepth   int    `json:"queue_depth"`
	QueueCap     int    `json:"queue_capacity"`
	LatestOffset recorder.Offset `json:"latest_offset"`
	LastError    string `json:"last_error,omitempty"`
}

// LagReport is returned by LagMetrics: per known consumer, how many
// ordinals behind the latest offset it is.
type LagReport struct {
	LatestOffset recorder.Offset       `json:"latest_offset"`
	ConsumerLag  map[string]uint64     `json:"consumer_lag"`
}

// idempotencyEntry pairs a cached response with its FIFO insertion order.
type idempotencyEntry struct {
	response AppendResponse
}

// Backend is the append-log storage backend: a single mutex-guarded writer
// plus a lock-free admission counter, matching the concurrency model in
// spec §5 — offsets are assigned under the writer mutex so they are
// strictly monotonic with respect to commit order.
type Backend struct {
	cfg Config

	// admission bounds in-flight AppendBatch calls at cfg.QueueCapacity
	// without ever touching the writer mutex (spec §5).
	inFlight atomic.Int64

	mu            sync.Mutex
	dataFile      *os.File
	writer        *bufio.Writer
	state         *stateDocument
	idempotency   map[string]idempotencyEntry
	idempotencyFIFO []string
	lastError     string
}

// Open performs the open procedure from spec §4.1: create parent dirs,
// open the data file, scan its valid prefix and truncate any torn tail,
// reconcile the state file against the scan, and seek to end for appends.
func Open(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, envelope.Wrap(envelope.KindTerminalConfig, envelope.CodeConfig, "invalid appendlog config", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DataPath), 0o755); err != nil {
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "create data directory", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o755); err != nil {
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "create state directory", err)
	}

	f, err := os.OpenFile(cfg.DataPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "open data file", err)
	}

	scan, err := scanValidPrefix(f)
	if err != nil {
		_ = f.Close()
		return nil, envelope.Wrap(envelope.KindCorruption, envelope.CodeStorage, "scan data file", err)
	}
	if err := f.Truncate(scan.ValidLength); err != nil {
		_ = f.Close()
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "truncate torn tail", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "fsync after truncate", err)
	}

	state, err := loadStateDocument(cfg.StatePath)
	if err != nil {
		_ = f.Close()
		return nil, envelope.Wrap(envelope.KindCorruption, envelope.CodeStorage, "load state file", err)
	}

	// Reconcile: if the persisted next_offset agrees with the scanned
	// valid length, trust the persisted next_ordinal. Otherwise the state
	// was ahead of a torn tail we just truncated away — fall back to the
	// scanned record count, which is the number of fully-valid records.
	if state.NextOffset != uint64(scan.ValidLength) {
		state.NextOffset = uint64(scan.ValidLength)
		state.NextOrdinal = scan.RecordCount
	}

	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		_ = f.Close()
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "seek to end", err)
	}

	b := &Backend{
		cfg:         cfg,
		dataFile:    f,
		writer:      bufio.NewWriter(f),
		state:       state,
		idempotency: make(map[string]idempotencyEntry),
	}
	return b, nil
}

// Close flushes and releases the data file handle.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writer.Flush(); err != nil {
		return fmt.Errorf("appendlog: flush on close: %w", err)
	}
	return b.dataFile.Close()
}

// acquireSlot bounds in-flight calls at cfg.QueueCapacity using a
// lock-free counter, independent of the writer mutex.
func (b *Backend) acquireSlot() bool {
	for {
		cur := b.inFlight.Load()
		if int(cur) >= b.cfg.QueueCapacity {
			return false
		}
		if b.inFlight.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (b *Backend) releaseSlot() {
	b.inFlight.Add(-1)
}

// AppendBatch admits, validates, and commits one batch per spec §4.1.
func (b *Backend) AppendBatch(req AppendRequest) (AppendResponse, error) {
	if !b.acquireSlot() {
		return AppendResponse{}, envelope.New(envelope.KindOverload, envelope.CodeBackendUnavailable, "append queue at capacity")
	}
	defer b.releaseSlot()

	if strings.TrimSpace(req.BatchID) == "" {
		return AppendResponse{}, envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "batch_id must not be empty")
	}
	if len(req.Events) == 0 {
		return AppendResponse{}, envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "batch must contain at least one event")
	}
	if len(req.Events) > b.cfg.MaxBatchEvents {
		return AppendResponse{}, envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs,
			fmt.Sprintf("batch has %d events, exceeds max_batch_events %d", len(req.Events), b.cfg.MaxBatchEvents))
	}

	encoded := make([][]byte, len(req.Events))
	var totalBytes int
	for i, e := range req.Events {
		buf, err := encodeRecord(e)
		if err != nil {
			return AppendResponse{}, envelope.Wrap(envelope.KindTerminalData, envelope.CodeInvalidArgs, "serialize batch event", err)
		}
		encoded[i] = buf
		totalBytes += len(buf)
	}
	if totalBytes > b.cfg.MaxBatchBytes {
		return AppendResponse{}, envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs,
			fmt.Sprintf("batch is %d bytes, exceeds max_batch_bytes %d", totalBytes, b.cfg.MaxBatchBytes))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.idempotency[req.BatchID]; ok {
		return entry.response, nil
	}

	first := recorder.Offset{SegmentID: b.state.SegmentID, ByteOffset: b.state.NextOffset, Ordinal: b.state.NextOrdinal}
	var last recorder.Offset
	for _, buf := range encoded {
		last = recorder.Offset{SegmentID: b.state.SegmentID, ByteOffset: b.state.NextOffset, Ordinal: b.state.NextOrdinal}
		if _, err := b.writer.Write(buf); err != nil {
			return AppendResponse{}, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "write record", err)
		}
		b.state.NextOffset += uint64(len(buf))
		b.state.NextOrdinal++
	}

	committedAt := time.Now().UnixMilli()
	if err := b.enforceDurability(req.RequiredDurability); err != nil {
		return AppendResponse{}, err
	}

	resp := AppendResponse{
		Backend:             "appendlog",
		AcceptedCount:       last.Ordinal - first.Ordinal + 1,
		FirstOffset:         first,
		LastOffset:          last,
		CommittedDurability: req.RequiredDurability,
		CommittedAtMs:       committedAt,
	}

	b.idempotency[req.BatchID] = idempotencyEntry{response: resp}
	b.idempotencyFIFO = append(b.idempotencyFIFO, req.BatchID)
	for len(b.idempotencyFIFO) > b.cfg.MaxIdempotencyEntries {
		evict := b.idempotencyFIFO[0]
		b.idempotencyFIFO = b.idempotencyFIFO[1:]
		delete(b.idempotency, evict)
	}

	return resp, nil
}

// enforceDurability applies the requested durability tier. Caller holds b.mu.
func (b *Backend) enforceDurability(d Durability) error {
	switch d {
	case Enqueued:
		return nil
	case Appended:
		if err := b.writer.Flush(); err != nil {
			b.lastError = err.Error()
			return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "flush writer", err)
		}
		if err := b.state.persist(b.cfg.StatePath); err != nil {
			b.lastError = err.Error()
			return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "persist state", err)
		}
		return nil
	case Fsync:
		if err := b.writer.Flush(); err != nil {
			b.lastError = err.Error()
			return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "flush writer", err)
		}
		if err := b.dataFile.Sync(); err != nil {
			b.lastError = err.Error()
			return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "fsync data file", err)
		}
		if err := b.state.persist(b.cfg.StatePath); err != nil {
			b.lastError = err.Error()
			return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "persist state", err)
		}
		return nil
	default:
		return envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, fmt.Sprintf("unknown durability %q", d))
	}
}

// Flush flushes the writer and, in Durable mode, fsyncs and persists state.
type FlushMode string

const (
	Buffered FlushMode = "buffered"
	Durable  FlushMode = "durable"
)

func (b *Backend) Flush(mode FlushMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writer.Flush(); err != nil {
		return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "flush writer", err)
	}
	if mode == Durable {
		if err := b.dataFile.Sync(); err != nil {
			return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "fsync data file", err)
		}
		if err := b.state.persist(b.cfg.StatePath); err != nil {
			return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "persist state", err)
		}
	}
	return nil
}

// ReadCheckpoint returns the stored checkpoint for consumer, if any.
func (b *Backend) ReadCheckpoint(consumerID string) (recorder.Checkpoint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp, ok := b.state.Checkpoints[consumerID]
	return cp, ok
}

// CommitCheckpoint advances a consumer's checkpoint, per spec §4.1: a
// regression is a terminal error, an equal ordinal is a no-op, and a
// strictly greater ordinal advances and persists state.
func (b *Backend) CommitCheckpoint(cp recorder.Checkpoint) (CheckpointOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, exists := b.state.Checkpoints[cp.ConsumerID]
	if exists {
		if cp.UpToOffset.Ordinal < current.UpToOffset.Ordinal {
			return "", envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs,
				fmt.Sprintf("checkpoint regression for consumer %s: %d < %d", cp.ConsumerID, cp.UpToOffset.Ordinal, current.UpToOffset.Ordinal))
		}
		if cp.UpToOffset.Ordinal == current.UpToOffset.Ordinal {
			return NoopAlreadyAdvanced, nil
		}
	}

	b.state.Checkpoints[cp.ConsumerID] = cp
	if err := b.state.persist(b.cfg.StatePath); err != nil {
		return "", envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "persist checkpoint", err)
	}
	return Advanced, nil
}

// Health reports the backend's current admission and offset state.
func (b *Backend) Health() HealthReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return HealthReport{
		Backend:      "appendlog",
		Degraded:     b.lastError != "",
		QueueDepth:   int(b.inFlight.Load()),
		QueueCap:     b.cfg.QueueCapacity,
		LatestOffset: recorder.Offset{SegmentID: b.state.SegmentID, ByteOffset: b.state.NextOffset, Ordinal: b.state.NextOrdinal},
		LastError:    b.lastError,
	}
}

// LagMetrics returns the current latest offset and, per known consumer
// sorted by id, latest_ordinal - checkpoint.ordinal.
func (b *Backend) LagMetrics() LagReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	latest := recorder.Offset{SegmentID: b.state.SegmentID, ByteOffset: b.state.NextOffset, Ordinal: b.state.NextOrdinal}
	lag := make(map[string]uint64, len(b.state.Checkpoints))
	for id, cp := range b.state.Checkpoints {
		if latest.Ordinal >= cp.UpToOffset.Ordinal {
			lag[id] = latest.Ordinal - cp.UpToOffset.Ordinal
		}
	}
	return LagReport{LatestOffset: latest, ConsumerLag: lag}
}

// ReadAll replays every durable event in the log, in on-disk (append)
// order. Used by the invariant checker and by tests; not on the hot path.
func (b *Backend) ReadAll() ([]recorder.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writer.Flush(); err != nil {
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "flush before read", err)
	}
	return readAllValid(b.dataFile, int64(b.state.NextOffset))
}
