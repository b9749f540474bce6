package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"12", 1200},
		{"12.3", 1230},
		{"12.34", 1234},
		{"0.01", 1},
		{".50", 50},
		{"-5.25", -525},
		{" 7.00 ", 700},
	}
	for _, tc := range cases {
		got, err := ParseCents(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseCentsRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "1.234", "1,50", "1.2.3"} {
		_, err := ParseCents(in)
		require.Error(t, err, "input %q", in)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "input %q", in)
		require.Equal(t, "amount", vErr.Field)
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{1234, "12.34"},
		{1230, "12.30"},
		{-525, "-5.25"},
		{999999999999999, "9999999999999.99"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatCents(tc.in))
	}
}

func TestImpactShare(t *testing.T) {
	cases := []struct {
		amount  int64
		splitBy int
		want    int64
	}{
		{1000, 1, 1000},
		{1000, 0, 1000},
		{1000, 2, 500},
		{1000, 3, 333},
		{1001, 2, 501}, // .5 rounds away from zero
		{-1001, 2, -501},
		{1, 3, 0},
		{2, 3, 1},
	}
	for _, tc := range cases {
		got := ImpactShare(tc.amount, tc.splitBy)
		require.Equal(t, tc.want, got, "%d split by %d", tc.amount, tc.splitBy)
	}
}
