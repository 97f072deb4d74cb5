// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package store

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexiclass/lexiclass/pkg/errutil"
)

// EndSpan records err and its error code on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code := errutil.CodeOf(err); code != "" {
			span.SetAttributes(attribute.String("error.code", code))
		}
	}
	span.End()
}
