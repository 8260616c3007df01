package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBRNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.234,56", 1234.56, true},
		{"987,00", 987, true},
		{"12.345.678,90", 12345678.90, true},
		{"0,00", 0, true},
		{"  45,10 ", 45.10, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseBRNumber(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 0.001, "input %q", tc.in)
		}
	}
}

func TestLastBRNumber(t *testing.T) {
	v, ok := lastBRNumber("base 10.000,00 aliquota 5,00 iss 500,00")
	require.True(t, ok)
	assert.InDelta(t, 500.0, v, 0.001)

	_, ok = lastBRNumber("no numbers here")
	assert.False(t, ok)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1234.57, Round2(1234.567))
	assert.Equal(t, 10.56, Round2(10.5649))
}
