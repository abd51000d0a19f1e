package session

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const signingMethodName = "HS256"

type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte

	Issuer   string
	Audience string

	AccessExpiration  time.Duration
	RefreshExpiration time.Duration
	ResetExpiration   time.Duration
}

// ParseTokenConfigFromEnv reads TOKEN_SECRET, REFRESH_TOKEN_SECRET, TOKEN_ISSUER,
// TOKEN_AUDIENCE, ACCESS_TOKEN_EXPIRE_MINUTES, REFRESH_TOKEN_EXPIRE_MINUTES and
// RESET_TOKEN_EXPIRE_HOURS. The two secrets must be set and must differ, access and
// refresh tokens are never verifiable with each other's key.
func ParseTokenConfigFromEnv() (*TokenConfig, error) {
	accessSecret := os.Getenv("TOKEN_SECRET")
	refreshSecret := os.Getenv("REFRESH_TOKEN_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("environment variables TOKEN_SECRET and REFRESH_TOKEN_SECRET are not set")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	cfg := &TokenConfig{
		AccessSecret:      []byte(accessSecret),
		RefreshSecret:     []byte(refreshSecret),
		Issuer:            envOrDefault("TOKEN_ISSUER", "warden"),
		Audience:          envOrDefault("TOKEN_AUDIENCE", "warden-clients"),
		AccessExpiration:  time.Duration(envIntOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshExpiration: time.Duration(envIntOrDefault("REFRESH_TOKEN_EXPIRE_MINUTES", 24*60)) * time.Minute,
		ResetExpiration:   time.Duration(envIntOrDefault("RESET_TOKEN_EXPIRE_HOURS", 48)) * time.Hour,
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// TokenClaims is the shared claim shape of access and refresh tokens. The email
// claim is only carried by access tokens.
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (cfg *TokenConfig) IssueAccessToken(subject, email string, now time.Time) (string, error) {
	claims := &TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessExpiration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.AccessSecret)
}

func (cfg *TokenConfig) IssueRefreshToken(subject string, now time.Time) (string, error) {
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.RefreshExpiration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.RefreshSecret)
}

func (cfg *TokenConfig) DecodeAccessToken(token string) (*TokenClaims, error) {
	return cfg.decode(token, cfg.AccessSecret)
}

func (cfg *TokenConfig) DecodeRefreshToken(token string) (*TokenClaims, error) {
	return cfg.decode(token, cfg.RefreshSecret)
}

func (cfg *TokenConfig) decode(token string, secret []byte) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{signingMethodName}), jwt.WithIssuer(cfg.Issuer), jwt.WithAudience(cfg.Audience))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueResetToken builds the signed password-reset artifact: sub is the account
// email, with exp and nbf bounds.
func (cfg *TokenConfig) IssueResetToken(email string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   email,
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ResetExpiration)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.AccessSecret)
}

// DecodeResetToken extracts the subject email. Any decode failure yields an empty
// subject, callers translate that into the generic invalid-token outcome.
func (cfg *TokenConfig) DecodeResetToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return cfg.AccessSecret, nil
	}, jwt.WithValidMethods([]string{signingMethodName}))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
