package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
)

// Principal extraction from the verified JWT. The authenticated caller
// id travels in the token's "sub" claim as a UUID string.

// PrincipalFromRequest returns the authenticated caller id carried by
// the request's JWT.
func PrincipalFromRequest(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, fmt.Errorf("no verified token: %w", err)
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return uuid.Nil, fmt.Errorf("token has no subject claim")
	}

	principal, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject claim is not a valid principal id: %w", err)
	}

	return principal, nil
}
