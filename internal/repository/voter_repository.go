package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pemilihan-be/internal/domain"
	"pemilihan-be/pkg/database"

	"github.com/jackc/pgx/v5"
)

type voterRepository struct {
	db *database.PostgresDB
}

func NewVoterRepository(db *database.PostgresDB) VoterRepository {
	return &voterRepository{db: db}
}

const voterColumns = `id, name, class, email, has_voted, voted_at, voted_for, created_at, updated_at`

func scanVoter(row pgx.Row, v *domain.Voter, extra ...any) error {
	dest := []any{
		&v.ID, &v.Name, &v.Class, &v.Email, &v.HasVoted,
		&v.VotedAt, &v.VotedFor, &v.CreatedAt, &v.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func (r *voterRepository) GetByIdentity(ctx context.Context, name, class string) (*domain.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE name = $1 AND class = $2`

	var voter domain.Voter
	err := scanVoter(r.db.Pool.QueryRow(ctx, query, name, class), &voter)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	return &voter, nil
}

func (r *voterRepository) GetByID(ctx context.Context, id int64) (*domain.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE id = $1`

	var voter domain.Voter
	err := scanVoter(r.db.Pool.QueryRow(ctx, query, id), &voter)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voter by ID: %w", err)
	}
	return &voter, nil
}

// CastVote relies on the WHERE clause of the conflict branch: when the
// existing row already has has_voted = true nothing is updated and no row
// is returned, so concurrent writers for one identity cannot both record.
func (r *voterRepository) CastVote(ctx context.Context, p domain.CastVoteParams) (int64, bool, error) {
	query := `
		INSERT INTO voters (name, class, email, has_voted, voted_for, voted_at)
		VALUES ($1, $2, $3, true, $4, $5)
		ON CONFLICT (name, class) DO UPDATE SET
			has_voted  = true,
			voted_for  = EXCLUDED.voted_for,
			voted_at   = EXCLUDED.voted_at,
			email      = COALESCE(EXCLUDED.email, voters.email),
			updated_at = NOW()
		WHERE voters.has_voted = false
		RETURNING id
	`

	var id int64
	err := r.db.Pool.QueryRow(ctx, query,
		p.Identity.Name,
		p.Identity.Class,
		p.Identity.Email,
		p.CandidateID,
		p.VotedAt,
	).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to cast vote: %w", err)
	}
	return id, true, nil
}

func (r *voterRepository) ListVotedFor(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT voted_for FROM voters WHERE has_voted = true`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan votes: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}
	return ids, nil
}

func (r *voterRepository) List(ctx context.Context, q domain.VoterListQuery) ([]domain.VoterListItem, error) {
	query := `
		SELECT v.id, v.name, v.class, v.email, v.has_voted, v.voted_at, v.voted_for,
		       v.created_at, v.updated_at, COALESCE(c.name, '')
		FROM voters v
		LEFT JOIN candidates c ON c.id = v.voted_for
		WHERE ($1 = 'all' OR ($1 = 'voted' AND v.has_voted) OR ($1 = 'not_voted' AND NOT v.has_voted))
		  AND ($2 = '' OR v.name ILIKE $3 OR v.class ILIKE $3)
		ORDER BY v.voted_at DESC NULLS LAST, v.name ASC, v.id ASC
	`

	filter := q.Filter
	if filter == "" {
		filter = domain.VoterFilterAll
	}
	search := strings.TrimSpace(q.Search)

	rows, err := r.db.Pool.Query(ctx, query, string(filter), search, "%"+escapeLike(search)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	items := make([]domain.VoterListItem, 0)
	for rows.Next() {
		var item domain.VoterListItem
		if err := scanVoter(rows, &item.Voter, &item.VotedForName); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voters: %w", err)
	}
	return items, nil
}

func (r *voterRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM voters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete voter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *voterRepository) Counts(ctx context.Context) (int, int, error) {
	var total, voted int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE has_voted) FROM voters`,
	).Scan(&total, &voted)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return total, voted, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
