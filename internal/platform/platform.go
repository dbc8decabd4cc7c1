package platform

import (
	"errors"
	"strings"
	"sync"
)

// Supported platform identifiers.
const (
	YouTube   = "youtube"
	TikTok    = "tiktok"
	Instagram = "instagram"
	Twitter   = "twitter"
)

// ErrUnknownPlatform is returned for identifiers outside the supported set.
var ErrUnknownPlatform = errors.New("unknown platform")

// Supported returns the enumerated platform set in display order.
func Supported() []string {
	return []string{YouTube, TikTok, Instagram, Twitter}
}

// IsSupported reports whether name is a member of the supported set.
func IsSupported(name string) bool {
	switch strings.ToLower(name) {
	case YouTube, TikTok, Instagram, Twitter:
		return true
	}
	return false
}

// Status is the per-platform connectivity record.
type Status struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Icon      string `json:"icon"`
}

// Registry holds platform connectivity state. It is read-mostly: the
// only mutations are the connect/disconnect commands.
type Registry struct {
	mu       sync.RWMutex
	statuses []Status
}

// NewRegistry creates a registry covering the supported set, all
// disconnected.
func NewRegistry() *Registry {
	icons := map[string]string{
		YouTube:   "▶️",
		TikTok:    "🎵",
		Instagram: "📸",
		Twitter:   "𝕏",
	}

	statuses := make([]Status, 0, len(Supported()))
	for _, name := range Supported() {
		statuses = append(statuses, Status{Name: name, Icon: icons[name]})
	}
	return &Registry{statuses: statuses}
}

// List returns a copy of all platform statuses in display order.
func (r *Registry) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dup := make([]Status, len(r.statuses))
	copy(dup, r.statuses)
	return dup
}

// Connect marks the platform as connected and returns its record.
func (r *Registry) Connect(name string) (Status, error) {
	return r.setConnected(name, true)
}

// Disconnect marks the platform as disconnected and returns its record.
func (r *Registry) Disconnect(name string) (Status, error) {
	return r.setConnected(name, false)
}

func (r *Registry) setConnected(name string, connected bool) (Status, error) {
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.statuses {
		if r.statuses[i].Name == key {
			r.statuses[i].Connected = connected
			return r.statuses[i], nil
		}
	}
	return Status{}, ErrUnknownPlatform
}
