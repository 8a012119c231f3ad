// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/internal/platform/constants"
	"github.com/taibuivan/waitgate/internal/platform/ctxutil"
	"github.com/taibuivan/waitgate/internal/platform/respond"
	"github.com/taibuivan/waitgate/internal/platform/sec"
)

// TokenVerifier checks a bearer token and returns its claims.
//
// Defining it here decouples the middleware from [sec.TokenCodec] so tests
// can inject a stub.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// Authenticate requires an `Authorization: Bearer <token>` header and places
// the verified claims in the context.
//
// # Flow
//  1. Missing header or wrong scheme: 401.
//  2. Verification failure of any kind: 401 "Invalid or expired token".
//  3. Claims are injected with [ctxutil.WithAuthUser].
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			scheme, token, found := strings.Cut(request.Header.Get(constants.HeaderAuthorization), " ")
			if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "bearer_token_rejected",
					apperr.LogAttrs(err)...)
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			ctxutil.GetLogger(ctx).DebugContext(ctx, "bearer_token_accepted", slog.String("user_id", claims.UserID))

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireRole admits only callers whose role is in the allow-list.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. Missing claims give
// 401; a role outside the list gives 403.
func RequireRole(roles ...sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if !slices.Contains(roles, sec.UserRole(claims.Role)) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
