package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mxteam/mediabot/internal/config"
	"github.com/mxteam/mediabot/internal/domain"
)

// OperatorAuthService authenticates the bot operator for the admin surface.
// There is a single operator identity; the password is held only as a bcrypt
// hash in configuration.
type OperatorAuthService interface {
	// Login verifies the operator password and returns a signed token.
	Login(password string) (string, error)

	// ValidateToken checks a token and returns its claims.
	ValidateToken(tokenString string) (*OperatorClaims, error)
}

// OperatorClaims represents operator JWT claims.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type operatorAuthService struct {
	passwordHash []byte
	jwtSecret    []byte
	expiration   time.Duration
}

// NewOperatorAuthService creates an operator authentication service.
func NewOperatorAuthService(cfg config.SecurityConfig) OperatorAuthService {
	return &operatorAuthService{
		passwordHash: []byte(cfg.GetOperatorPasswordHash()),
		jwtSecret:    []byte(cfg.GetJWTSecret()),
		expiration:   cfg.GetJWTExpiration(),
	}
}

func (s *operatorAuthService) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", domain.NewAuthenticationError("INVALID_CREDENTIALS", "invalid operator password")
	}

	now := time.Now()
	claims := OperatorClaims{
		Role: "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", domain.NewInternalError("TOKEN_GENERATION_FAILED", "failed to sign operator token", err)
	}
	return signed, nil
}

func (s *operatorAuthService) ValidateToken(tokenString string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.NewAuthenticationError("INVALID_TOKEN", "unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.NewAuthenticationError("INVALID_TOKEN", "invalid or expired operator token")
	}
	return claims, nil
}
