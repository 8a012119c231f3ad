// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogAttrs returns structured log attributes for err. Coded (oops) errors
// contribute their code and context; other errors only their message.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	attrs := []any{slog.String("error", err.Error())}

	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil && code != "" {
			attrs = append(attrs, slog.Any("error_code", code))
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, slog.Any("error_context", ctx))
		}
	}

	return attrs
}
