// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farmmarket/api/pkg/slug"
)

func TestFrom(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Qarabağ üzümü", "qarabag-uzumu"},
		{"Alma", "alma"},
		{"  Fresh   Tomatoes  ", "fresh-tomatoes"},
		// Dotless ı has no ASCII decomposition and falls out entirely.
		{"Göygöl balı (organic)", "goygol-bal-organic"},
		{"---", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, slug.From(tc.input), "input: %q", tc.input)
	}
}

func TestFromAll(t *testing.T) {
	tags := slug.FromAll([]string{"Qarabağ üzümü", "Alma", "alma", "  ", "ALMA"})

	assert.Equal(t, []string{"qarabag-uzumu", "alma"}, tags)
}
