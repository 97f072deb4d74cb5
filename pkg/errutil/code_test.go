// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/lexiclass/lexiclass/pkg/errutil"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ""},
		{"oops without code", oops.Errorf("boom"), ""},
		{"coded", oops.Code("SCORE_INVALID").Errorf("bad grade"), "SCORE_INVALID"},
		{"wrapped coded", oops.With("k", "v").Wrap(oops.Code("INNER").Errorf("x")), "INNER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errutil.CodeOf(tt.err))
		})
	}
}
