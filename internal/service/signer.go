package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hubspot-relay/internal/model"
)

// SignatureHeader carries the relay's signature on forwarded webhooks.
const SignatureHeader = "X-Relay-Signature"

const (
	signatureIssuer = "hubspot-relay"
	signatureTTL    = 5 * time.Minute
)

// SignatureClaims binds a forwarded webhook body to a short-lived token.
type SignatureClaims struct {
	jwt.RegisteredClaims
	Event      model.WebhookEvent `json:"event"`
	BodySHA256 string             `json:"body_sha256"`
}

// Signer issues HS256 tokens over forwarded webhook bodies so the backend can
// tell relayed calls from direct ones.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer for secret, or nil when secret is empty.
func NewSigner(secret string) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign returns a signed token for body.
func (s *Signer) Sign(event model.WebhookEvent, body []byte) (string, error) {
	now := s.now()
	claims := SignatureClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signatureIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(signatureTTL)),
		},
		Event:      event,
		BodySHA256: BodyDigest(body),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign webhook: %w", err)
	}
	return signed, nil
}

// Verify parses token and checks it was issued for body. Backends written in
// Go can use it directly; it also backs the relay's own tests.
func (s *Signer) Verify(token string, body []byte) (*SignatureClaims, error) {
	claims := &SignatureClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(signatureIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}
	if claims.BodySHA256 != BodyDigest(body) {
		return nil, fmt.Errorf("verify signature: body digest mismatch")
	}
	return claims, nil
}

// BodyDigest returns the hex SHA-256 of body.
func BodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
