package service

import (
	"context"
	"strings"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/repository"
	apperrors "pemilihan-be/pkg/errors"
)

// NormalizeIdentity trims name and class and collapses inner whitespace
// runs to a single space. Case is preserved, so "Budi" and "budi" are two
// different voters. An empty email becomes nil.
func NormalizeIdentity(name, class string, email *string) (domain.VoterIdentity, error) {
	identity := domain.VoterIdentity{
		Name:  collapseSpaces(name),
		Class: collapseSpaces(class),
	}

	missing := make([]string, 0, 2)
	if identity.Name == "" {
		missing = append(missing, "name")
	}
	if identity.Class == "" {
		missing = append(missing, "class")
	}
	if len(missing) > 0 {
		return domain.VoterIdentity{}, apperrors.NewValidationError(
			"Name and class are required",
			map[string]interface{}{"missing": missing},
		)
	}

	if email != nil {
		if trimmed := strings.TrimSpace(*email); trimmed != "" {
			identity.Email = &trimmed
		}
	}

	return identity, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IdentityResolver maps a (name, class) pair to a voter record
type IdentityResolver struct {
	voters repository.VoterRepository
}

func NewIdentityResolver(voters repository.VoterRepository) *IdentityResolver {
	return &IdentityResolver{voters: voters}
}

// Resolve looks up the normalized identity. When no voter exists a fresh
// unsaved voter with HasVoted=false is returned; nothing is written.
func (r *IdentityResolver) Resolve(ctx context.Context, name, class string, email *string) (*domain.ResolvedVoter, error) {
	identity, err := NormalizeIdentity(name, class, email)
	if err != nil {
		return nil, err
	}

	voter, err := r.voters.GetByIdentity(ctx, identity.Name, identity.Class)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to look up voter", err)
	}

	if voter != nil {
		return &domain.ResolvedVoter{Identity: identity, Voter: *voter, Exists: true}, nil
	}

	return &domain.ResolvedVoter{
		Identity: identity,
		Voter: domain.Voter{
			Name:  identity.Name,
			Class: identity.Class,
			Email: identity.Email,
		},
	}, nil
}
