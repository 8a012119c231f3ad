// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/internal/platform/constants"
	"github.com/taibuivan/waitgate/internal/platform/ctxutil"
	"github.com/taibuivan/waitgate/internal/platform/ratelimit"
	"github.com/taibuivan/waitgate/internal/platform/respond"
)

// # API Key

// RequireAPIKey checks the X-API-Key header against key.
// An absent header gives 401; a wrong key gives 403.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	expected := []byte(key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			provided := request.Header.Get(constants.HeaderXAPIKey)
			if provided == "" {
				respond.Error(writer, request, apperr.Unauthorized("API key required"))
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				respond.Error(writer, request, apperr.Forbidden("Invalid API key"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Origin

// ValidateOrigin rejects browser requests from origins outside allowed.
//
// # Flow
//  1. Origin header present: it must be in allowed.
//  2. Otherwise the scheme://host of Referer must be in allowed.
//  3. Neither header: allowed outside production, rejected in production.
func ValidateOrigin(allowed []string, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" {
				origin = refererOrigin(request.Header.Get(constants.HeaderReferer))
			}

			switch {
			case origin == "" && !production:
				next.ServeHTTP(writer, request)
			case origin != "" && slices.Contains(allowed, origin):
				next.ServeHTTP(writer, request)
			default:
				respond.Error(writer, request, apperr.Forbidden("Origin not allowed"))
			}
		})
	}
}

func refererOrigin(referer string) string {
	if referer == "" {
		return ""
	}
	parsed, err := url.Parse(referer)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

// # Rate Limiting

// LimitByIP counts requests per client address under limiter's policy.
func LimitByIP(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return limit(limiter, func(request *http.Request) string {
		return "ip:" + ClientIP(request)
	})
}

// LimitByIdentity counts requests per authenticated identity, falling back
// to the client address for anonymous requests. Mount it after [Authenticate].
func LimitByIdentity(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return limit(limiter, func(request *http.Request) string {
		if claims := ctxutil.GetAuthUser(request.Context()); claims != nil {
			return "user:" + claims.UserID
		}
		return "ip:" + ClientIP(request)
	})
}

// limit applies limiter to the key chosen by keyFn. A store failure is
// logged and the request is let through.
func limit(limiter *ratelimit.Limiter, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			decision, err := limiter.Allow(request.Context(), keyFn(request))
			if err != nil {
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "rate_limit_store_unavailable",
					slog.String("policy", limiter.Policy().Name),
					slog.Any("error", err),
				)
				next.ServeHTTP(writer, request)
				return
			}

			header := writer.Header()
			header.Set(constants.HeaderRateLimit, strconv.Itoa(decision.Limit))
			header.Set(constants.HeaderRateRemaining, strconv.Itoa(decision.Remaining))
			header.Set(constants.HeaderRateReset, strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "rate_limit_exceeded",
					slog.String("policy", limiter.Policy().Name),
					slog.Int("count", decision.Count),
				)
				respond.Error(writer, request, apperr.RateLimited(decision.RetryAfterSeconds()))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
