package devices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackedDevice struct {
	*AndroidDevice
	id     string
	closed int
}

func (d *trackedDevice) ID() string {
	return d.id
}

func (d *trackedDevice) Close() error {
	d.closed++
	return nil
}

func newTrackedDevice(t *testing.T, id string) *trackedDevice {
	return &trackedDevice{AndroidDevice: bringupFake(t, newFakeTransport()), id: id}
}

func TestDeviceRegistry_RegisterAndGet(t *testing.T) {
	registry, err := NewDeviceRegistry(2)
	require.NoError(t, err)

	device := newTrackedDevice(t, "a")
	session := registry.Register(device)
	assert.NotEmpty(t, session.ID)

	got, ok := registry.Get("a")
	require.True(t, ok)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, 1, registry.Len())

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestDeviceRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	registry, err := NewDeviceRegistry(2)
	require.NoError(t, err)

	a := newTrackedDevice(t, "a")
	b := newTrackedDevice(t, "b")
	c := newTrackedDevice(t, "c")

	registry.Register(a)
	registry.Register(b)
	_, _ = registry.Get("a")
	registry.Register(c)

	assert.Equal(t, 0, a.closed)
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 2, registry.Len())
}

func TestDeviceRegistry_ReplaceClosesPrevious(t *testing.T) {
	registry, err := NewDeviceRegistry(2)
	require.NoError(t, err)

	first := newTrackedDevice(t, "a")
	second := newTrackedDevice(t, "a")

	s1 := registry.Register(first)
	s2 := registry.Register(second)

	assert.NotEqual(t, s1.ID, s2.ID)
	assert.Equal(t, 1, first.closed)
	assert.Equal(t, 0, second.closed)
}

func TestDeviceRegistry_RemoveAndCleanup(t *testing.T) {
	registry, err := NewDeviceRegistry(0)
	require.NoError(t, err)

	a := newTrackedDevice(t, "a")
	b := newTrackedDevice(t, "b")
	registry.Register(a)
	registry.Register(b)

	assert.True(t, registry.Remove("a"))
	assert.False(t, registry.Remove("a"))
	assert.Equal(t, 1, a.closed)

	registry.CleanupAll()
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 0, registry.Len())
	assert.Empty(t, registry.Sessions())
}
