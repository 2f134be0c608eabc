package repository

import (
	"context"
	"fmt"

	"pemilihan-be/internal/domain"
)

func optional(s string) *string { return &s }

// DemoCandidates is the sample ballot used by demo mode and the migrate seed command
func DemoCandidates() []domain.CandidateInput {
	return []domain.CandidateInput{
		{
			Name:    "Andi Pratama",
			Class:   optional("XI IPA 1"),
			Vision:  optional("OSIS yang terbuka dan mendengar semua siswa"),
			Mission: optional("Forum aspirasi bulanan; laporan kegiatan terbuka"),
		},
		{
			Name:    "Siti Rahmawati",
			Class:   optional("XI IPS 2"),
			Vision:  optional("Sekolah hijau dan berprestasi"),
			Mission: optional("Bank sampah kelas; klub lomba akademik"),
		},
		{
			Name:    "Budi Santoso",
			Class:   optional("XI IPA 3"),
			Vision:  optional("Ekstrakurikuler untuk semua"),
			Mission: optional("Festival ekskul tahunan; jadwal latihan bersama"),
		},
	}
}

// SeedCandidates inserts the inputs when the candidates table is empty.
// It reports how many rows were created.
func SeedCandidates(ctx context.Context, candidates CandidateRepository, inputs []domain.CandidateInput) (int, error) {
	count, err := candidates.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for i, input := range inputs {
		if _, err := candidates.Create(ctx, input); err != nil {
			return i, fmt.Errorf("failed to seed candidate %q: %w", input.Name, err)
		}
	}
	return len(inputs), nil
}
