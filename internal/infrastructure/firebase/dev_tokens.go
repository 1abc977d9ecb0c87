package firebase

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const devIssuer = "petcycle-dev"

// DevClaims are carried by locally signed development tokens.
type DevClaims struct {
	Nickname string `json:"nickname,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// DevTokens issues and verifies HS256 tokens for local runs and tests, standing in for
// Firebase ID tokens when no project is configured.
type DevTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewDevTokens(secret string, ttl time.Duration) *DevTokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DevTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (d *DevTokens) GenerateToken(uid, nickname, role string) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("uid is required")
	}

	now := d.now()
	claims := DevClaims{
		Nickname: nickname,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    devIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.secret)
}

func (d *DevTokens) VerifyToken(ctx context.Context, token string) (string, error) {
	claims := &DevClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return d.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}
