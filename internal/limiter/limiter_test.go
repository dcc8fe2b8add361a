package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitUpToLimit(t *testing.T) {
	l := New(10, time.Minute)

	for i := 0; i < 10; i++ {
		assert.True(t, l.Admit("1.2.3.4"), "request %d should be admitted", i+1)
	}
	assert.False(t, l.Admit("1.2.3.4"), "11th request in the window should be rejected")
}

func TestClientsAreIndependent(t *testing.T) {
	l := New(2, time.Minute)

	require.True(t, l.Admit("a"))
	require.True(t, l.Admit("a"))
	require.False(t, l.Admit("a"))

	// A different client still has its full budget.
	assert.True(t, l.Admit("b"))
}

func TestWindowSlides(t *testing.T) {
	now := time.Now()
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	require.True(t, l.Admit("a"))
	require.True(t, l.Admit("a"))
	require.False(t, l.Admit("a"))

	// Just inside the window: still rejected.
	now = now.Add(59 * time.Second)
	require.False(t, l.Admit("a"))

	// First two timestamps age out; budget frees up again.
	now = now.Add(2 * time.Second)
	assert.True(t, l.Admit("a"))
}

func TestRejectedAttemptsNotRecorded(t *testing.T) {
	now := time.Now()
	l := New(1, time.Minute)
	l.now = func() time.Time { return now }

	require.True(t, l.Admit("a"))
	for i := 0; i < 5; i++ {
		require.False(t, l.Admit("a"))
	}

	// Only the single admitted timestamp counts; once it ages out the
	// client is admitted again even though it kept retrying.
	now = now.Add(61 * time.Second)
	assert.True(t, l.Admit("a"))
}

func TestSweepDropsExpiredClients(t *testing.T) {
	now := time.Now()
	l := New(10, time.Minute)
	l.now = func() time.Time { return now }

	require.True(t, l.Admit("a"))
	require.True(t, l.Admit("b"))
	require.Equal(t, 2, l.Clients())

	now = now.Add(2 * time.Minute)
	require.True(t, l.Admit("b"))

	removed := l.sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Clients())
}
