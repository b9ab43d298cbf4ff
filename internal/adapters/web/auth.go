package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bizledger/internal/app"
	"bizledger/internal/core"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	authCookie = "auth_token"
	tokenTTL   = 8 * time.Hour
)

type actorKey struct{}

// actorFromContext returns the authenticated actor stored in ctx.
func actorFromContext(ctx context.Context) (core.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(core.Actor)
	return a, ok
}

// jwtClaims is the JWT payload struct used for signing and parsing.
type jwtClaims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// issueToken signs an HS256 token for u.
func (h *Handler) issueToken(u *core.User, now time.Time) (string, error) {
	claims := &jwtClaims{
		UserID: u.ID,
		Role:   u.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}

// parseToken validates raw and returns the actor it names.
func (h *Handler) parseToken(raw string) (core.Actor, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return core.Actor{}, fmt.Errorf("invalid token: %w", err)
	}
	role, err := core.ParseRole(claims.Role)
	if err != nil {
		return core.Actor{}, err
	}
	if claims.UserID <= 0 {
		return core.Actor{}, fmt.Errorf("token has no user")
	}
	return core.Actor{UserID: claims.UserID, Role: role}, nil
}

// RequireAuth is chi middleware that validates the auth_token cookie and injects
// the actor into the request context. Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookie)
		if err != nil {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		actor, err := h.parseToken(cookie.Value)
		if err != nil {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

// login handles POST /api/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req app.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.Login(r.Context(), req)
	if err != nil {
		if core.KindOf(err) == core.KindNotFound {
			writeError(w, r, "invalid username or password", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	signed, err := h.issueToken(user, time.Now())
	if err != nil {
		h.log.Error("token generation failed", zap.Error(err))
		writeError(w, r, "token generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	h.setAuthCookie(w, signed, int(tokenTTL.Seconds()))
	writeJSON(w, user)
}

// logout handles POST /api/auth/logout and clears the auth cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.setAuthCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// me handles GET /api/auth/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context(), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, user)
}

// mustActor returns the actor injected by RequireAuth. Handlers behind
// RequireAuth always have one.
func mustActor(r *http.Request) core.Actor {
	a, _ := actorFromContext(r.Context())
	return a
}
