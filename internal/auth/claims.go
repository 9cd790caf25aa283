package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default lifetimes, applied when the configured TTL is zero or negative.
const (
	DefaultAccessTTLMinutes = 15
	DefaultTicketTTLSeconds = 30
)

// TokenKind discriminates bearer access tokens from WebSocket tickets.
// Parsing checks the kind, so a ticket can never be replayed as a bearer
// token or the other way round.
type TokenKind string

const (
	// KindAccess is a bearer token presented in the Authorization header.
	KindAccess TokenKind = "access"

	// KindTicket is a short-lived token passed in the WebSocket query
	// string. Browsers cannot set headers on a WebSocket handshake, so
	// the ticket keeps the bearer token out of URLs and access logs.
	KindTicket TokenKind = "ticket"
)

// Claims extends JWT registered claims with twincore fields.
type Claims struct {
	jwt.RegisteredClaims
	Kind      TokenKind `json:"kind"`
	SessionID string    `json:"sid"`
}

// GenerateAccessToken creates a signed bearer token for a client identity.
// Access tokens are validated by signature only (no store lookup).
func GenerateAccessToken(subject, secret string, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = DefaultAccessTTLMinutes
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
		Kind:      KindAccess,
		SessionID: uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// GenerateTicket creates a signed WebSocket ticket tied to an existing
// session. The session id comes from the bearer token that requested the
// ticket, so the WebSocket connection stays attributable to it.
func GenerateTicket(subject, sessionID, secret string, ttlSeconds int) (string, error) {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTicketTTLSeconds
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlSeconds) * time.Second)),
			ID:        uuid.NewString(),
		},
		Kind:      KindTicket,
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing ticket: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates a bearer token and returns its claims.
// Tickets are rejected.
func ParseAccessToken(tokenString, secret string) (*Claims, error) {
	claims, err := parseToken(tokenString, secret)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrTokenInvalid)
	}
	return claims, nil
}

// ParseTicket validates a WebSocket ticket and returns its claims.
// Bearer tokens are rejected.
func ParseTicket(tokenString, secret string) (*Claims, error) {
	claims, err := parseToken(tokenString, secret)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindTicket {
		return nil, fmt.Errorf("%w: not a ticket", ErrTokenInvalid)
	}
	return claims, nil
}

// parseToken checks the signature, expiry, and required fields.
func parseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}
