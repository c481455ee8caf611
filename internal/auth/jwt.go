package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the session claims issued by the auth provider.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens signed with an HMAC secret or an RSA key.
type Verifier struct {
	issuer   string
	audience string
	secret   []byte
	rsaKey   *rsa.PublicKey
}

type Config struct {
	IssuerURL    string
	Audience     string
	HMACSecret   string
	PublicKeyPEM string
}

// NewVerifier creates a Verifier. The RSA key wins when both are configured.
func NewVerifier(cfg *Config) (*Verifier, error) {
	v := &Verifier{issuer: cfg.IssuerURL, audience: cfg.Audience}
	if cfg.PublicKeyPEM != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse auth public key: %w", err)
		}
		v.rsaKey = key
		return v, nil
	}
	if cfg.HMACSecret == "" {
		return nil, errors.New("auth requires a public key or an HMAC secret")
	}
	v.secret = []byte(cfg.HMACSecret)
	return v, nil
}

// Verify parses the token and returns the authenticated user id (the "sub" claim).
func (v *Verifier) Verify(tokenString string) (string, *Claims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired(), jwt.WithLeeway(30 * time.Second)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyFunc, opts...)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", nil, ErrInvalidToken
	}
	return claims.Subject, claims, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (any, error) {
	if v.rsaKey != nil {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.rsaKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.secret, nil
}

// IssueHS256 signs a token for userID. Used by tests and local tooling.
func IssueHS256(secret, issuer, userID string, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
