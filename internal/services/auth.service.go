package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	defaultTokenExpiry = 90 * 24 * time.Hour
	minSecretKeyLength = 32
	tokenIssuer        = "nazar"
)

// AuthService issues and validates the JWTs websocket clients present.
type AuthService struct {
	secretKey   []byte
	tokenExpiry time.Duration
	now         func() time.Time
}

// CustomClaims represents the JWT claims structure
type CustomClaims struct {
	ClientName string `json:"client_name"`
	jwt.RegisteredClaims
}

// DefaultSecretKeyFile is where the signing key is persisted when no path is configured
func DefaultSecretKeyFile() string {
	dir, err := os.UserHomeDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, ".nazar-secret-key")
}

// NewAuthService loads the signing key from keyFile, generating and
// persisting a random one on first use.
func NewAuthService(keyFile string, tokenExpiry time.Duration, logger *zap.Logger) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyFile == "" {
		keyFile = DefaultSecretKeyFile()
	}
	if tokenExpiry <= 0 {
		tokenExpiry = defaultTokenExpiry
	}

	key, err := loadOrCreateKey(keyFile, logger)
	if err != nil {
		return nil, err
	}
	return NewAuthServiceWithKey(key, tokenExpiry)
}

// NewAuthServiceWithKey builds a service around an explicit key.
func NewAuthServiceWithKey(key string, tokenExpiry time.Duration) (*AuthService, error) {
	key = strings.TrimSpace(key)
	if len(key) < minSecretKeyLength {
		return nil, fmt.Errorf("secret key is %d bytes, need at least %d", len(key), minSecretKeyLength)
	}
	if tokenExpiry <= 0 {
		tokenExpiry = defaultTokenExpiry
	}
	return &AuthService{secretKey: []byte(key), tokenExpiry: tokenExpiry, now: time.Now}, nil
}

func loadOrCreateKey(keyFile string, logger *zap.Logger) (string, error) {
	if data, err := os.ReadFile(keyFile); err == nil {
		if key := strings.TrimSpace(string(data)); len(key) >= minSecretKeyLength {
			logger.Info("loaded secret key", zap.String("path", keyFile))
			return key, nil
		}
		logger.Warn("secret key file too short, regenerating", zap.String("path", keyFile))
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read secret key: %w", err)
	}

	randomBytes := make([]byte, minSecretKeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}
	key := hex.EncodeToString(randomBytes)

	if err := os.WriteFile(keyFile, []byte(key), 0o600); err != nil {
		return "", fmt.Errorf("persist secret key: %w", err)
	}
	logger.Info("generated secret key", zap.String("path", keyFile))
	return key, nil
}

// GenerateToken creates a new JWT token for the named client
func (a *AuthService) GenerateToken(clientName string) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.tokenExpiry)

	claims := CustomClaims{
		ClientName: clientName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies and parses a JWT token
func (a *AuthService) ValidateToken(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secretKey, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
