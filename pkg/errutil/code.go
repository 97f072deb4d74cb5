// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package errutil

import "github.com/samber/oops"

// CodeOf returns the oops error code of err, or "" when err carries none.
func CodeOf(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}
