package devices

import (
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mobile-next/touchbridge/utils"
)

const DefaultRegistrySize = 8

// Session is one brought-up device held by the registry.
type Session struct {
	ID        string     `json:"sessionId"`
	Device    Controller `json:"-"`
	StartedAt time.Time  `json:"startedAt"`
}

// DeviceRegistry keeps brought-up devices by device ID. The least recently
// used session is closed when the registry is full.
type DeviceRegistry struct {
	sessions *lru.Cache[string, *Session]
}

func NewDeviceRegistry(size int) (*DeviceRegistry, error) {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	cache, err := lru.NewWithEvict(size, func(deviceID string, session *Session) {
		closeSession(deviceID, session)
	})
	if err != nil {
		return nil, err
	}
	return &DeviceRegistry{sessions: cache}, nil
}

func closeSession(deviceID string, session *Session) {
	utils.Verbose("closing session %s for device %s", session.ID, deviceID)
	if err := session.Device.Close(); err != nil {
		utils.Verbose("Error cleaning up device %s: %v", deviceID, err)
	}
}

// Register stores device under a new session, closing any session it replaces.
func (r *DeviceRegistry) Register(device Controller) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		Device:    device,
		StartedAt: time.Now(),
	}

	if old, ok := r.sessions.Peek(device.ID()); ok && old.Device != device {
		closeSession(device.ID(), old)
	}
	r.sessions.Add(device.ID(), session)
	return session
}

func (r *DeviceRegistry) Get(deviceID string) (*Session, bool) {
	return r.sessions.Get(deviceID)
}

// Remove closes and forgets the session of deviceID.
func (r *DeviceRegistry) Remove(deviceID string) bool {
	return r.sessions.Remove(deviceID)
}

func (r *DeviceRegistry) Sessions() []*Session {
	return r.sessions.Values()
}

func (r *DeviceRegistry) Len() int {
	return r.sessions.Len()
}

// CleanupAll closes every session.
func (r *DeviceRegistry) CleanupAll() {
	if r.sessions.Len() == 0 {
		return
	}
	r.sessions.Purge()
}
