// Package identity validates bearer tokens issued by the identity provider.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/middleware/auth"
)

// Claims are the access token claims. RecruiterID wins over Subject when
// both are present.
type Claims struct {
	RecruiterID string `json:"recruiter_id,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Validator checks HS256 tokens signed with the shared key.
type Validator struct {
	signingKey []byte
	issuer     string
	leeway     time.Duration
}

func NewValidator(signingKey, issuer string) *Validator {
	return &Validator{signingKey: []byte(signingKey), issuer: issuer, leeway: 30 * time.Second}
}

func (v *Validator) ValidateToken(tokenString string) (*auth.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	raw := claims.RecruiterID
	if raw == "" {
		raw = claims.Subject
	}
	recruiterID, err := id.ParseRecruiterID(raw)
	if err != nil || recruiterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no recruiter id")
	}
	return &auth.Claims{RecruiterID: recruiterID}, nil
}

// Sign issues a token for recruiterID. The service never hands these out;
// local tooling and tests use it to stand in for the identity provider.
func (v *Validator) Sign(recruiterID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RecruiterID: recruiterID.String(),
		Email:       email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   recruiterID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(v.signingKey)
}
