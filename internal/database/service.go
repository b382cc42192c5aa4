package database

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService issues and validates maintainer session tokens for the
// admin surface (manual release, policy reload).
type AuthService struct {
	repo      *Repository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(repo *Repository, jwtSecret string) *AuthService {
	return &AuthService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
	}
}

// GenerateMaintainerToken generates a JWT for a maintainer session
func (s *AuthService) GenerateMaintainerToken(handle, repositoryID string) (string, error) {
	claims := jwt.MapClaims{
		"handle":        handle,
		"repository_id": repositoryID,
		"role":          "maintainer",
		"exp":           time.Now().Add(s.tokenTTL).Unix(),
		"iat":           time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateMaintainerToken validates a JWT and returns the maintainer handle
func (s *AuthService) ValidateMaintainerToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	if role, _ := claims["role"].(string); role != "maintainer" {
		return "", fmt.Errorf("token is not a maintainer token")
	}

	handle, ok := claims["handle"].(string)
	if !ok {
		return "", fmt.Errorf("handle not found in token")
	}

	return handle, nil
}

// IsRepositoryMaintainer checks a handle against the repository's
// maintainer list before granting admin actions on its claims.
func (s *AuthService) IsRepositoryMaintainer(handle, repositoryID string) (bool, error) {
	repo, err := s.repo.GetRepository(repositoryID)
	if err != nil {
		return false, err
	}

	for _, m := range repo.Maintainers {
		if m == handle {
			return true, nil
		}
	}
	return false, nil
}
