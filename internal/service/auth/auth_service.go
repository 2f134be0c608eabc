package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/service"
	"pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// Service implements the AuthService interface
type Service struct {
	jwtSecret []byte
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new auth service
func NewService(jwtSecret string, logger *logger.Logger) service.AuthService {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
		now:       time.Now,
	}
}

// ValidateToken validates a Supabase JWT with signature verification
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*domain.UserProfile, error) {
	if len(s.jwtSecret) == 0 {
		s.logger.Error("SUPABASE_JWT_SECRET not configured")
		return nil, errors.NewAuthenticationError("JWT validation not configured")
	}

	if !isJWTToken(tokenString) {
		s.logger.Debug("Unrecognized token format")
		return nil, errors.NewAuthenticationError("Unrecognized token format")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify the signing algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		s.logger.WithError(err).Warn("Failed to parse/validate JWT token")
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.NewAuthenticationError("Token has expired")
		}
		return nil, errors.NewAuthenticationError("Invalid JWT token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		s.logger.Error("Failed to extract JWT claims")
		return nil, errors.NewAuthenticationError("Invalid JWT token")
	}

	profile := &domain.UserProfile{
		Sub:   getStringValue(claims, "sub"),
		Email: getStringValue(claims, "email"),
		Role:  extractRole(claims),
	}

	if userMeta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		profile.Name = getStringValue(userMeta, "name")
		if profile.Name == "" {
			profile.Name = getStringValue(userMeta, "full_name")
		}
	}

	if profile.Sub == "" {
		s.logger.Error("No user identifier found in JWT token")
		return nil, errors.NewAuthenticationError("Invalid JWT token: no user identifier")
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": profile.Sub,
		"role":    profile.Role,
	}).Debug("Supabase JWT token validated successfully")
	return profile, nil
}

// extractRole reads app_metadata only, which just the service role can
// write. A missing or unknown value is member.
func extractRole(claims jwt.MapClaims) domain.Role {
	meta, ok := claims["app_metadata"].(map[string]interface{})
	if !ok {
		return domain.RoleMember
	}
	switch role := domain.Role(strings.ToLower(getStringValue(meta, "role"))); role {
	case domain.RoleAdmin, domain.RolePanitia:
		return role
	}
	return domain.RoleMember
}

func isJWTToken(token string) bool {
	// JWT tokens have exactly 3 segments separated by dots
	return token != "" && strings.Count(token, ".") == 2
}

func getStringValue(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}
