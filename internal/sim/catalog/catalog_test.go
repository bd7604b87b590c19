package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownApplication(t *testing.T) {
	app, ok := Lookup("GeForce Gaming")
	require.True(t, ok)
	assert.Equal(t, PriorityHigh, app.Priority)
	assert.Equal(t, "Ultra-Low Latency", app.Policy)
	assert.Equal(t, QoSHigh, app.Class)
}

func TestLookupUnknownReturnsDefault(t *testing.T) {
	app, ok := Lookup("Tetris")
	assert.False(t, ok)
	assert.Equal(t, Unknown, app)
}

func TestResolveByContainment(t *testing.T) {
	app, ok := Resolve("Microsoft Teams")
	require.True(t, ok)
	assert.Equal(t, "Microsoft Teams", app.Name)

	for _, tag := range []string{"", "Streaming", "Gaming", "Conference"} {
		app, ok := Resolve(tag)
		assert.False(t, ok, tag)
		assert.Equal(t, Unknown, app, tag)
	}
}

func TestApplicationsReturnsCopy(t *testing.T) {
	apps := Applications()
	require.Len(t, apps, 6)
	apps[0].Name = "mutated"

	again := Applications()
	assert.Equal(t, "Netflix", again[0].Name)
}

func TestDirectionLabel(t *testing.T) {
	assert.Equal(t, "Uplink", Uplink.Label())
	assert.Equal(t, "Balanced", Balanced.Label())
	assert.Equal(t, "Unknown", Direction("sideways").Label())
}
