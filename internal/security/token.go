package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoTokenSecret = errors.New("download tokens need a secret")
	ErrInvalidToken  = errors.New("invalid download token")
)

// DownloadClaims authorise one stored document. The subject is its
// storage key.
type DownloadClaims struct {
	JobID string `json:"job"`
	jwt.RegisteredClaims
}

// IssueDownloadToken signs a link token for key, valid for ttl from now.
func IssueDownloadToken(secret, key, jobID string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoTokenSecret
	}
	claims := DownloadClaims{
		JobID: jobID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			Issuer:    "qms-exporter",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseDownloadToken checks signature and expiry and returns the claims.
func ParseDownloadToken(secret, token string) (*DownloadClaims, error) {
	if secret == "" {
		return nil, ErrNoTokenSecret
	}
	claims := &DownloadClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("qms-exporter"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims, nil
}
