package vectorstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wa-project/recorder/pkg/envelope"
)

// RegisterGeneration upserts a generation record without changing its
// status — status transitions are the exclusive province of
// ActivateGeneration and explicit retire/fail calls.
func (s *Store) RegisterGeneration(ctx context.Context, g Generation) error {
	if g.ProfileID == "" || g.GenerationID == "" {
		return envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "vectorstore: profile_id and generation_id are required")
	}
	status := g.Status
	if status == "" {
		status = StatusBuilding
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO semantic_generations
			(profile_id, generation_id, chunk_policy_version, lexical_schema_version, embedding_model, status, created_at, activated_at, retired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id, generation_id) DO UPDATE SET
			chunk_policy_version = excluded.chunk_policy_version,
			lexical_schema_version = excluded.lexical_schema_version,
			embedding_model = excluded.embedding_model
	`, g.ProfileID, g.GenerationID, g.ChunkPolicyVersion, g.LexicalSchemaVersion, g.EmbeddingModel, status, g.CreatedAt, nullableInt64(g.ActivatedAt), nullableInt64(g.RetiredAt))
	if err != nil {
		return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "register generation", err)
	}
	return nil
}

// ActivateGeneration retires any other active generation of the profile and
// marks (profile, gen) active, preserving a prior activated_at if one
// exists. Unknown generation returns a CodeInvalidArgs error tagged
// "generation not found".
func (s *Store) ActivateGeneration(ctx context.Context, profileID, generationID string, nowMs int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "begin activate transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `
		SELECT 1 FROM semantic_generations WHERE profile_id = ? AND generation_id = ?
	`, profileID, generationID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "vectorstore: generation not found").WithHint("register the generation before activating it")
		}
		return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "lookup generation", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE semantic_generations SET status = 'retired', retired_at = ?
		WHERE profile_id = ? AND status = 'active' AND generation_id != ?
	`, nowMs, profileID, generationID); err != nil {
		return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "retire prior active generation", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE semantic_generations
		SET status = 'active', retired_at = NULL, activated_at = COALESCE(activated_at, ?)
		WHERE profile_id = ? AND generation_id = ?
	`, nowMs, profileID, generationID); err != nil {
		return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "activate generation", err)
	}

	if err := tx.Commit(); err != nil {
		return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "commit activate transaction", err)
	}
	return nil
}

// GetGeneration loads one generation record, or nil if it does not exist.
func (s *Store) GetGeneration(ctx context.Context, profileID, generationID string) (*Generation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT profile_id, generation_id, chunk_policy_version, lexical_schema_version, embedding_model, status, created_at, activated_at, retired_at
		FROM semantic_generations WHERE profile_id = ? AND generation_id = ?
	`, profileID, generationID)
	g, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "get generation", err)
	}
	return g, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*Generation, error) {
	var g Generation
	var activatedAt, retiredAt sql.NullInt64
	if err := row.Scan(&g.ProfileID, &g.GenerationID, &g.ChunkPolicyVersion, &g.LexicalSchemaVersion, &g.EmbeddingModel, &g.Status, &g.CreatedAt, &activatedAt, &retiredAt); err != nil {
		return nil, err
	}
	if activatedAt.Valid {
		v := activatedAt.Int64
		g.ActivatedAt = &v
	}
	if retiredAt.Valid {
		v := retiredAt.Int64
		g.RetiredAt = &v
	}
	return &g, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
