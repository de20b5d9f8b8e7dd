package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/warp/contractor-payments/marketplace"
)

// ProfileHeader carries the caller's profile id when no bearer token is sent.
const ProfileHeader = "profile_id"

type ctxKey int

const profileKey ctxKey = iota

// WithProfile stores the resolved caller in ctx.
func WithProfile(ctx context.Context, p marketplace.Profile) context.Context {
	return context.WithValue(ctx, profileKey, p)
}

// ProfileFrom returns the caller resolved by RequireProfile.
func ProfileFrom(ctx context.Context) (marketplace.Profile, bool) {
	p, ok := ctx.Value(profileKey).(marketplace.Profile)
	return p, ok
}

// MustProfile panics outside RequireProfile. Recoverer turns that into a 500.
func MustProfile(ctx context.Context) marketplace.Profile {
	p, ok := ProfileFrom(ctx)
	if !ok {
		panic("api: handler mounted without RequireProfile")
	}
	return p
}

// RequireProfile resolves the caller from a bearer token (when a JWT secret is
// configured) or the profile_id header. Unknown or missing callers get 401.
func (h *Handler) RequireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.callerID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", err)
			return
		}

		profile, err := h.Service.GetProfile(r.Context(), marketplace.ProfileID(id))
		if err != nil {
			if errors.Is(err, marketplace.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
				return
			}
			h.writeServiceError(w, r, err)
			return
		}

		ctx := WithProfile(r.Context(), profile)
		zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Int64("profile_id", int64(profile.ID))
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) callerID(r *http.Request) (int64, error) {
	if authz := r.Header.Get("Authorization"); authz != "" && h.Tokens.Enabled() {
		token, ok := strings.CutPrefix(authz, "Bearer ")
		if !ok {
			return 0, errors.New("authorization must be a bearer token")
		}
		return h.Tokens.ProfileID(strings.TrimSpace(token))
	}

	raw := strings.TrimSpace(r.Header.Get(ProfileHeader))
	if raw == "" {
		return 0, errors.New("missing profile_id header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("profile_id must be a positive integer")
	}
	return id, nil
}

// requestLogger puts a request-scoped logger in the context, tags it with
// chi's request id and writes one access line per request.
func requestLogger(log zerolog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(log),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if id := middleware.GetReqID(r.Context()); id != "" {
					hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
						return c.Str("request_id", id)
					})
				}
				next.ServeHTTP(w, r)
			})
		},
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", size).
				Dur("duration", duration).
				Msg("request")
		}),
	}
}
