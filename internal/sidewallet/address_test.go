package sidewallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidAddress(t *testing.T) {
	cases := []struct {
		name  string
		addr  string
		valid bool
	}{
		{"system program, 32 chars", "11111111111111111111111111111111", true},
		{"token program, 43 chars", "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", true},
		{"too short", "abc", false},
		{"too long", "111111111111111111111111111111111111111111111111", false},
		{"invalid base58 alphabet (contains 0)", "0okenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, ValidAddress(tc.addr))
		})
	}
}
