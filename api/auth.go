package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/expense-engine/generic"
)

// =============================================================================
// AUTH - Bearer token principal + single role gate
// =============================================================================

const RoleAdmin = "admin"

// Principal is the caller of a request.
type Principal struct {
	ActorID generic.ActorID
	Role    string
}

type ctxKey string

const principalKey ctxKey = "principal"

// Claims carried by bearer tokens: sub is the actor, role the single role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator resolves the Principal of each request. With an empty
// secret it trusts the X-Actor-ID / X-Actor-Role headers (development).
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Enabled() bool { return len(a.secret) > 0 }

// Middleware rejects requests without a valid principal.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.principal(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", err)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) principal(r *http.Request) (Principal, error) {
	if !a.Enabled() {
		actor := r.Header.Get("X-Actor-ID")
		if actor == "" {
			actor = "dev"
		}
		role := r.Header.Get("X-Actor-Role")
		if role == "" {
			role = RoleAdmin
		}
		return Principal{ActorID: generic.ActorID(actor), Role: role}, nil
	}

	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return Principal{}, errors.New("missing auth token")
	}
	tokenStr := strings.TrimPrefix(h, "Bearer ")

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Principal{}, errors.New("subject missing")
	}
	return Principal{ActorID: generic.ActorID(claims.Subject), Role: claims.Role}, nil
}

// Sign issues a token for p. Used by tests and tooling.
func (a *Authenticator) Sign(p Principal) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             p.Role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: string(p.ActorID)},
	})
	return token.SignedString(a.secret)
}

// RequireRole lets only principals with role through.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := PrincipalFrom(r.Context()); !ok || p.Role != role {
				writeError(w, http.StatusForbidden, "Forbidden", errors.New("requires role "+role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

func actorFrom(r *http.Request) generic.ActorID {
	p, _ := PrincipalFrom(r.Context())
	return p.ActorID
}
