package repository

import (
	"context"
	"errors"
	"fmt"

	"pemilihan-be/internal/domain"
	"pemilihan-be/pkg/database"

	"github.com/jackc/pgx/v5"
)

type electionRepository struct {
	db *database.PostgresDB
}

func NewElectionRepository(db *database.PostgresDB) ElectionRepository {
	return &electionRepository{db: db}
}

const electionColumns = `id, election_name, start_date, end_date, is_active, allow_voting, announcement, created_at, updated_at`

func scanElection(row pgx.Row, s *domain.ElectionSettings) error {
	return row.Scan(
		&s.ID, &s.ElectionName, &s.StartDate, &s.EndDate, &s.IsActive,
		&s.AllowVoting, &s.Announcement, &s.CreatedAt, &s.UpdatedAt,
	)
}

func (r *electionRepository) Current(ctx context.Context) (*domain.ElectionSettings, error) {
	var s domain.ElectionSettings
	err := scanElection(r.db.Pool.QueryRow(ctx,
		`SELECT `+electionColumns+` FROM election_settings ORDER BY id DESC LIMIT 1`), &s)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get election settings: %w", err)
	}
	return &s, nil
}

func (r *electionRepository) Create(ctx context.Context, in domain.ElectionSettingsInput) (*domain.ElectionSettings, error) {
	query := `
		INSERT INTO election_settings (election_name, start_date, end_date, is_active, allow_voting, announcement)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + electionColumns

	var s domain.ElectionSettings
	err := scanElection(r.db.Pool.QueryRow(ctx, query,
		in.ElectionName, in.StartDate, in.EndDate, in.IsActive, in.AllowVoting, in.Announcement), &s)
	if err != nil {
		return nil, fmt.Errorf("failed to create election settings: %w", err)
	}
	return &s, nil
}
