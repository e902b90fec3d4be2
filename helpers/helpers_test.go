package helpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFoldErrors(t *testing.T) {
	t.Parallel()

	assert.NoError(t, FoldErrors(nil))
	assert.NoError(t, FoldErrors([]error{nil, nil}))
	err := FoldErrors([]error{fmt.Errorf("first"), nil, fmt.Errorf("second")})
	assert.EqualError(t, err, "first\nsecond")

	var el ErrorList
	el.Add(nil)
	assert.NoError(t, el.Fold())
	el.Addf("widget=%d unknown type", 3)
	assert.Len(t, el, 1)
	assert.EqualError(t, el.Fold(), "widget=3 unknown type")
}

func TestDurationDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100*time.Millisecond, IntMillisecondDefault(-1, 100*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, IntMillisecondDefault(250, 100*time.Millisecond))
}

func TestClamp(t *testing.T) {
	t.Parallel()

	cases := []struct{ x, lo, hi, expect int }{
		{-1, 0, 3, 0},
		{0, 0, 3, 0},
		{2, 0, 3, 2},
		{4, 0, 3, 3},
		{5, 0, 0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, Clamp(c.x, c.lo, c.hi), "x=%d", c.x)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	b := Backoff{Min: 100 * time.Millisecond, Max: time.Second, K: 3}
	assert.Equal(t, 100*time.Millisecond, b.Failure())
	assert.Equal(t, 300*time.Millisecond, b.Failure())
	assert.Equal(t, 900*time.Millisecond, b.Failure())
	assert.Equal(t, time.Second, b.Failure())
	assert.Equal(t, time.Duration(0), b.DelayAfter(true))
	assert.Equal(t, 100*time.Millisecond, b.DelayAfter(false))
}
