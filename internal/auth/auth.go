// Package auth is the identity guard in front of the credit ledger. It
// binds three identities together: the bearer token's subject, the userID
// the caller claims, and the owner recorded on the order. The webhook path
// carries no token, so the ownership check is the one that always applies.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid      = errors.New("invalid token")
	ErrIdentityMismatch  = errors.New("token subject does not match claimed user")
	ErrOwnershipMismatch = errors.New("order belongs to a different user")
)

type Guard struct {
	secret []byte
}

func NewGuard(secret []byte) (*Guard, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}

	return &Guard{secret: secret}, nil
}

// Subject verifies an HS256 token and returns its subject claim.
func (g *Guard) Subject(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return subject, nil
}

// Authorize enforces the identity rules for one verification attempt.
// tokenString may be empty: the webhook path has no user token and relies
// solely on the ownership comparison. A recorded owner is enforced with or
// without a token.
func (g *Guard) Authorize(tokenString, claimedUserID, orderOwner string) error {
	if claimedUserID == "" {
		return fmt.Errorf("claimed user id is empty")
	}

	if tokenString != "" {
		subject, err := g.Subject(tokenString)
		if err != nil {
			return err
		}

		if subject != claimedUserID {
			return ErrIdentityMismatch
		}
	}

	if orderOwner != "" && claimedUserID != orderOwner {
		return ErrOwnershipMismatch
	}

	return nil
}
