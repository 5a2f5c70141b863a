// Package auth issues and validates principal tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken       = &apperr.Error{Kind: apperr.ErrUnauthorized, Message: "invalid token"}
	ErrExpiredToken       = &apperr.Error{Kind: apperr.ErrUnauthorized, Message: "token expired"}
	ErrInvalidCredentials = &apperr.Error{Kind: apperr.ErrUnauthorized, Message: "invalid email or password"}
	ErrUserInactive       = &apperr.Error{Kind: apperr.ErrUnauthorized, Message: "account is deactivated"}
)

const defaultExpiry = 24 * time.Hour

// Service handles authentication operations
type Service struct {
	jwtSecret []byte
	tokenExp  time.Duration
	now       func() time.Time
}

// NewService creates an authentication service signing with secret.
// A non-positive expiry falls back to 24 hours.
func NewService(secret string, expiry time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &Service{
		jwtSecret: []byte(secret),
		tokenExp:  expiry,
		now:       time.Now,
	}, nil
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword checks if a password matches a hash
func (s *Service) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs a token for user.
func (s *Service) GenerateToken(user *models.User) (string, error) {
	return s.IssueToken(models.Claims{UserID: user.ID.Hex(), Email: user.Email, Role: user.Role})
}

// IssueToken signs a token carrying the principal {id, email, role}.
func (s *Service) IssueToken(c models.Claims) (string, error) {
	if c.UserID == "" || !models.IsValidRole(c.Role) {
		return "", apperr.Validation("a token needs a user id and a valid role")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": c.UserID,
		"email":   c.Email,
		"role":    string(c.Role),
		"exp":     now.Add(s.tokenExp).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a token, with or without the "Bearer " prefix,
// and returns its principal.
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	exp, ok := claims["exp"].(float64)
	if userID == "" || !ok || !models.IsValidRole(models.Role(role)) {
		return nil, ErrInvalidToken
	}

	return &models.Claims{
		UserID: userID,
		Email:  email,
		Role:   models.Role(role),
		Exp:    int64(exp),
	}, nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}

// ValidatePassword validates password strength
func (s *Service) ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperr.Validation("password must be at least 8 characters long")
	}
	return nil
}

// ValidateEmail validates email format
func (s *Service) ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, ".") {
		return apperr.Validation("invalid email format")
	}
	return nil
}

func (s *Service) ValidateName(field, value string) error {
	n := len(strings.TrimSpace(value))
	if n < 2 || n > 50 {
		return apperr.Validation("%s must be between 2 and 50 characters", field)
	}
	return nil
}
