package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]int64{
		"":    0,
		"30s": 30,
		"5m":  300,
		"2h":  7200,
		"1d":  86400,
		"42":  42,
		" 7 ": 7,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"bogus", "s", "1w", "-5", "1.5h", "m5"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, in)
	}
}

func TestDurationSeconds(t *testing.T) {
	assert.Equal(t, Duration("42"), Seconds(42))

	n, err := Seconds(90).Seconds()
	require.NoError(t, err)
	assert.EqualValues(t, 90, n)

	n, err = Duration("1h").Seconds()
	require.NoError(t, err)
	assert.EqualValues(t, 3600, n)
}
