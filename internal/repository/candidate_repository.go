package repository

import (
	"context"
	"errors"
	"fmt"

	"pemilihan-be/internal/domain"
	"pemilihan-be/pkg/database"

	"github.com/jackc/pgx/v5"
)

type candidateRepository struct {
	db *database.PostgresDB
}

func NewCandidateRepository(db *database.PostgresDB) CandidateRepository {
	return &candidateRepository{db: db}
}

const candidateColumns = `id, name, class, photo_url, vision, mission, votes, created_at, updated_at`

func scanCandidate(row pgx.Row, c *domain.Candidate) error {
	return row.Scan(
		&c.ID, &c.Name, &c.Class, &c.PhotoURL, &c.Vision,
		&c.Mission, &c.Votes, &c.CreatedAt, &c.UpdatedAt,
	)
}

func (r *candidateRepository) List(ctx context.Context) ([]domain.Candidate, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+candidateColumns+` FROM candidates ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]domain.Candidate, 0)
	for rows.Next() {
		var c domain.Candidate
		if err := scanCandidate(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return candidates, nil
}

func (r *candidateRepository) GetByID(ctx context.Context, id int64) (*domain.Candidate, error) {
	var c domain.Candidate
	err := scanCandidate(r.db.Pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return &c, nil
}

func (r *candidateRepository) Create(ctx context.Context, in domain.CandidateInput) (*domain.Candidate, error) {
	query := `
		INSERT INTO candidates (name, class, photo_url, vision, mission)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + candidateColumns

	var c domain.Candidate
	err := scanCandidate(r.db.Pool.QueryRow(ctx, query,
		in.Name, in.Class, in.PhotoURL, in.Vision, in.Mission), &c)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}
	return &c, nil
}

func (r *candidateRepository) Update(ctx context.Context, id int64, in domain.CandidateInput) (*domain.Candidate, error) {
	query := `
		UPDATE candidates
		SET name = $2, class = $3, photo_url = $4, vision = $5, mission = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + candidateColumns

	var c domain.Candidate
	err := scanCandidate(r.db.Pool.QueryRow(ctx, query,
		id, in.Name, in.Class, in.PhotoURL, in.Vision, in.Mission), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update candidate: %w", err)
	}
	return &c, nil
}

func (r *candidateRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *candidateRepository) IncrementVotes(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE candidates SET votes = votes + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment votes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *candidateRepository) SyncVotes(ctx context.Context, tally domain.Tally) error {
	ids := make([]int64, 0, len(tally))
	counts := make([]int32, 0, len(tally))
	for id, n := range tally {
		ids = append(ids, id)
		counts = append(counts, int32(n))
	}

	query := `
		UPDATE candidates c
		SET votes = COALESCE((
				SELECT t.votes FROM unnest($1::bigint[], $2::int[]) AS t(id, votes)
				WHERE t.id = c.id
			), 0),
			updated_at = NOW()
	`
	if _, err := r.db.Pool.Exec(ctx, query, ids, counts); err != nil {
		return fmt.Errorf("failed to sync votes: %w", err)
	}
	return nil
}

func (r *candidateRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	return n, nil
}
