package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// CleanupResult reports what one GC pass did. The three deletion counters
// partition total_sessions_deleted; a second call against an unchanged
// database must report every field zero (idempotent).
type CleanupResult struct {
	DeletedByAge        int  `json:"deleted_by_age"`
	DeletedByCount      int  `json:"deleted_by_count"`
	DeletedBySize       int  `json:"deleted_by_size"`
	OrphanedCheckpoints int  `json:"orphaned_checkpoints"`
	OrphanedPaneStates  int  `json:"orphaned_pane_states"`
	Vacuumed            bool `json:"vacuumed"`
}

// TotalSessionsDeleted sums the three deletion policies.
func (r CleanupResult) TotalSessionsDeleted() int {
	return r.DeletedByAge + r.DeletedByCount + r.DeletedBySize
}

// AnyWorkDone reports whether this pass deleted or swept anything.
func (r CleanupResult) AnyWorkDone() bool {
	return r.TotalSessionsDeleted() > 0 || r.OrphanedCheckpoints > 0 || r.OrphanedPaneStates > 0
}

// Service periodically enforces SessionRetentionConfig against a Store:
//   - deletes closed sessions past the age, count, and size limits
//   - sweeps orphaned checkpoints and pane-state rows
//   - VACUUMs when at least 10 sessions were deleted in one pass
//
// All operations are idempotent and safe to invoke concurrently with
// producers writing new sessions (deletes only ever target shutdown_clean
// sessions, never active ones).
type Service struct {
	store  *Store
	config SessionRetentionConfig

	cancel context.CancelFunc
	done   chan struct{}
	now    func() time.Time
}

// NewService creates a retention GC service bound to store.
func NewService(store *Store, cfg SessionRetentionConfig) *Service {
	return &Service{store: store, config: cfg, now: time.Now}
}

// Start launches the background cleanup loop, running one pass immediately
// and then on every configured interval.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention GC started",
		"max_age_days", s.config.MaxAgeDays,
		"max_closed_sessions", s.config.MaxClosedSessions,
		"max_total_size_mb", s.config.MaxTotalSizeMB,
		"interval", s.config.Interval())
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("retention GC stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.config.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	result, err := s.Run(ctx)
	if err != nil {
		slog.Error("retention GC pass failed", "error", err)
		return
	}
	if result.AnyWorkDone() {
		slog.Info("retention GC pass complete",
			"deleted_by_age", result.DeletedByAge,
			"deleted_by_count", result.DeletedByCount,
			"deleted_by_size", result.DeletedBySize,
			"orphaned_checkpoints", result.OrphanedCheckpoints,
			"orphaned_pane_states", result.OrphanedPaneStates,
			"vacuumed", result.Vacuumed)
	}
}

// Run executes one cleanup pass synchronously: age, then count, then size,
// then orphan sweep, then a conditional VACUUM. Per spec.md §4.8, any of
// the three limits being 0 disables that policy.
func (s *Service) Run(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult

	nowMs := s.now().UnixMilli()

	if s.config.MaxAgeDays > 0 {
		n, err := s.deleteByAge(ctx, nowMs)
		if err != nil {
			return result, err
		}
		result.DeletedByAge = n
	}

	if s.config.MaxClosedSessions > 0 {
		n, err := s.deleteByCount(ctx)
		if err != nil {
			return result, err
		}
		result.DeletedByCount = n
	}

	if s.config.MaxTotalSizeMB > 0 {
		n, err := s.deleteBySize(ctx)
		if err != nil {
			return result, err
		}
		result.DeletedBySize = n
	}

	orphanCP, orphanPS, err := s.sweepOrphans(ctx)
	if err != nil {
		return result, err
	}
	result.OrphanedCheckpoints = orphanCP
	result.OrphanedPaneStates = orphanPS

	if result.TotalSessionsDeleted() >= 10 {
		if _, err := s.store.db.ExecContext(ctx, "VACUUM"); err != nil {
			return result, err
		}
		result.Vacuumed = true
	}

	return result, nil
}

func (s *Service) deleteByAge(ctx context.Context, nowMs int64) (int, error) {
	cutoff := nowMs - int64(s.config.MaxAgeDays)*86_400_000
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE shutdown_clean = 1 AND active = 0 AND created_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Service) deleteByCount(ctx context.Context) (int, error) {
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE session_id IN (
			SELECT session_id FROM sessions
			WHERE shutdown_clean = 1 AND active = 0
			ORDER BY created_at DESC
			LIMIT -1 OFFSET ?
		)
	`, s.config.MaxClosedSessions)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Service) deleteBySize(ctx context.Context) (int, error) {
	budget := int64(s.config.MaxTotalSizeMB) * 1_048_576
	deleted := 0

	for {
		total, err := s.totalCheckpointBytes(ctx)
		if err != nil {
			return deleted, err
		}
		if total <= budget {
			break
		}

		var oldest string
		err = s.store.db.QueryRowContext(ctx, `
			SELECT session_id FROM sessions
			WHERE shutdown_clean = 1 AND active = 0
			ORDER BY created_at ASC
			LIMIT 1
		`).Scan(&oldest)
		if err != nil {
			break // no closed sessions remain
		}

		if _, err := s.store.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, oldest); err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

func (s *Service) totalCheckpointBytes(ctx context.Context) (int64, error) {
	var total int64
	err := s.store.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size_bytes), 0) FROM session_checkpoints`).Scan(&total)
	return total, err
}

func (s *Service) sweepOrphans(ctx context.Context) (int, int, error) {
	cpRes, err := s.store.db.ExecContext(ctx, `
		DELETE FROM session_checkpoints
		WHERE session_id NOT IN (SELECT session_id FROM sessions)
	`)
	if err != nil {
		return 0, 0, err
	}
	cpN, err := cpRes.RowsAffected()
	if err != nil {
		return 0, 0, err
	}

	psRes, err := s.store.db.ExecContext(ctx, `
		DELETE FROM mux_pane_state
		WHERE NOT EXISTS (
			SELECT 1 FROM session_checkpoints sc
			WHERE sc.session_id = mux_pane_state.session_id
			  AND sc.consumer_id = mux_pane_state.consumer_id
		)
	`)
	if err != nil {
		return int(cpN), 0, err
	}
	psN, err := psRes.RowsAffected()
	return int(cpN), int(psN), err
}
