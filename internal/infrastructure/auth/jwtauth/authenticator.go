package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

// Claims carries the caller's email next to the registered claims. The
// email is the owner key for contracts; sub is used when it is absent.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewAuthenticator(secret, issuer string) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Authenticator{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		leeway: 30 * time.Second,
	}, nil
}

func (a *Authenticator) Authenticate(_ context.Context, bearerToken string) (domain.Identity, error) {
	tokenString := strings.TrimSpace(bearerToken)
	if tokenString == "" {
		return domain.Identity{}, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("missing bearer token"))
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		return domain.Identity{}, domain.WrapError(domain.ErrUnauthorized, "authenticate", err)
	}

	userID := strings.TrimSpace(claims.Email)
	if userID == "" {
		userID = strings.TrimSpace(claims.Subject)
	}
	if userID == "" {
		return domain.Identity{}, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("token has neither email nor subject"))
	}
	return domain.Identity{UserID: userID, Email: claims.Email}, nil
}

// Issue signs a token for identity that Authenticate accepts until ttl
// elapses. Authenticate returns the same identity: when Email is set it is
// the owner key, so UserID must be empty or equal to it.
func (a *Authenticator) Issue(identity domain.Identity, ttl time.Duration) (string, error) {
	email := strings.TrimSpace(identity.Email)
	userID := strings.TrimSpace(identity.UserID)
	if email != "" {
		if userID != "" && userID != email {
			return "", fmt.Errorf("issue token: user id %q differs from email %q, which is the owner key", userID, email)
		}
		userID = email
	}
	if userID == "" {
		return "", errors.New("issue token: empty identity")
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
