// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package errutil

import (
	"context"
	"log/slog"
	"sort"

	"github.com/samber/oops"
)

// LogError logs err at error level without a request context.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, msg, err)
}

// LogErrorContext logs err at error level. Coded errors add their code, and
// their context map is written as the "context" group so that each key
// passes through the handler's attribute filters.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	attrs := []slog.Attr{slog.String("error", err.Error())}
	if code := CodeOf(err); code != "" {
		attrs = append(attrs, slog.String("code", code))
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if values := oopsErr.Context(); len(values) > 0 {
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			group := make([]any, 0, len(keys))
			for _, k := range keys {
				group = append(group, slog.Any(k, values[k]))
			}
			attrs = append(attrs, slog.Group("context", group...))
		}
	}
	logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}
