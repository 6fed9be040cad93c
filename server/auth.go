package server

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/GoCodeAlone/docket/policy"
	"github.com/GoCodeAlone/docket/server/api"
	"github.com/GoCodeAlone/docket/task"
)

// ActorClaims is the JWT payload identifying the request actor. The subject
// is the actor id.
type ActorClaims struct {
	Name string    `json:"name,omitempty"`
	Role task.Role `json:"role"`
	jwt.RegisteredClaims
}

// SignActorToken issues an HS256 token for actor valid for ttl.
func SignActorToken(secret string, actor policy.Actor, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	if actor.ID == "" || !actor.Role.Valid() {
		return "", fmt.Errorf("invalid actor %q with role %q", actor.ID, actor.Role)
	}
	now := time.Now()
	claims := ActorClaims{
		Name: actor.Name,
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// ParseActorToken validates token and returns the actor it names.
func ParseActorToken(secret, token string) (policy.Actor, error) {
	var claims ActorClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return policy.Actor{}, err
	}
	if claims.Subject == "" {
		return policy.Actor{}, errors.New("token has no subject")
	}
	if !claims.Role.Valid() {
		return policy.Actor{}, fmt.Errorf("token role %q is not recognised", claims.Role)
	}
	return policy.Actor{ID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}

// generateSecret creates a random 32-byte secret.
func generateSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// jwtSecret returns the configured JWT secret, generating one if empty.
func (s *Server) jwtSecret() string {
	if s.cfg.Auth.JWTSecret != "" {
		return s.cfg.Auth.JWTSecret
	}
	s.secretOnce.Do(func() {
		s.generatedSecret = generateSecret()
		s.logger.Warn("auth.jwt_secret not set; generated an ephemeral secret, tokens will not survive a restart")
	})
	return s.generatedSecret
}

// bearerToken extracts the token from the Authorization header, falling back
// to the token query parameter for EventSource clients that cannot set
// headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// authMiddleware resolves the actor from a bearer token on wrapped handlers.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		actor, err := ParseActorToken(s.jwtSecret(), token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token: "+err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(api.WithActor(r.Context(), actor)))
	})
}
