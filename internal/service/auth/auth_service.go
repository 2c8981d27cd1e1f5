package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/service"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// Claims carried by an admin token
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service implements the AuthService interface with HS256 tokens
type Service struct {
	secret []byte
	logger *logger.Logger
}

// NewService creates a new auth service. An empty secret disables admin access.
func NewService(secret string, logger *logger.Logger) *Service {
	return &Service{
		secret: []byte(secret),
		logger: logger,
	}
}

var _ service.AuthService = (*Service)(nil)

// ValidateAdminToken verifies signature, expiry and admin role
func (s *Service) ValidateAdminToken(ctx context.Context, tokenString string) (*domain.AdminIdentity, error) {
	if len(s.secret) == 0 {
		s.logger.Warn("Admin token presented but ADMIN_JWT_SECRET is not configured")
		return nil, errors.NewAuthenticationError("Admin access is not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		s.logger.WithError(err).Debug("Admin token rejected")
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}

	if claims.Role != domain.RoleAdmin {
		s.logger.WithField("sub", claims.Subject).Warn("Token without admin role used on admin endpoint")
		return nil, errors.NewAuthorizationError("Admin role required")
	}

	return &domain.AdminIdentity{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IssueAdminToken signs an admin token for subject valid for ttl
func (s *Service) IssueAdminToken(subject string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("admin secret is not configured")
	}

	now := time.Now()
	claims := Claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}
