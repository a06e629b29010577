package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSteamTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"Jan 02 2024 01: +0", time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)},
		{"Dec 31 2023 23: +0", time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)},
		{"Mar 10 2024 05: +2", time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)},
		{"Mar 10 2024 05:", time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSteamTime(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseSteamTimeInvalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "Jan 02 2024 01: +x"} {
		_, err := ParseSteamTime(in)
		assert.Error(t, err, in)
	}
}

func TestParseTime(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))

	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok = ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())

	_, ok = ParseTime("")
	assert.False(t, ok)
}

func TestParseInt64Default(t *testing.T) {
	assert.Equal(t, int64(45), ParseInt64Default("45", 0))
	assert.Equal(t, int64(0), ParseInt64Default("", 0))
	assert.Equal(t, int64(-1), ParseInt64Default("n/a", -1))
}
