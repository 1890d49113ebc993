// Package settings stores the single-value preference flags kept next to
// the collections: onboarding hints, the notification prompt dismissal and
// the sound effects toggle.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/events"
	"github.com/AtharvRaotole/reel-picks/internal/storage"
)

const (
	NotificationPermissionDismissed = "notification-permission-dismissed"
	SoundEffectsEnabled             = "sound-effects-enabled"
	onboardingHintPrefix            = "onboarding-hint-seen:"
)

// ErrUnknownFlag is returned for keys that are not preference flags.
var ErrUnknownFlag = errors.New("unknown settings flag")

// OnboardingHintSeen returns the flag key for the named hint.
func OnboardingHintSeen(hint string) string {
	return onboardingHintPrefix + hint
}

// Default returns the value of key when nothing is stored.
func Default(key string) bool {
	return key == SoundEffectsEnabled
}

// IsFlag reports whether key names a preference flag.
func IsFlag(key string) bool {
	switch {
	case key == NotificationPermissionDismissed, key == SoundEffectsEnabled:
		return true
	case strings.HasPrefix(key, onboardingHintPrefix):
		return len(key) > len(onboardingHintPrefix)
	}
	return false
}

// Flags reads and writes boolean flags in the shared storage area.
type Flags struct {
	backend storage.Backend
	bus     *events.Bus
	logger  *logrus.Logger
}

// NewFlags creates a flag accessor.
func NewFlags(backend storage.Backend, bus *events.Bus, logger *logrus.Logger) *Flags {
	return &Flags{backend: backend, bus: bus, logger: logger}
}

// Bool returns the stored value of key, or its default when missing or unreadable.
func (f *Flags) Bool(key string) bool {
	raw, err := f.backend.GetItem(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			f.logger.WithError(err).WithField("key", key).Warn("Failed to read flag")
		}
		return Default(key)
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return Default(key)
	}
	return v
}

// SetBool stores value under key and publishes the change signal.
func (f *Flags) SetBool(key string, value bool) error {
	if !IsFlag(key) {
		return fmt.Errorf("%w: %q", ErrUnknownFlag, key)
	}
	data, _ := json.Marshal(value)
	if err := f.backend.SetItem(key, data); err != nil {
		return fmt.Errorf("failed to save flag %s: %w", key, err)
	}
	if f.bus != nil {
		f.bus.Publish(key)
	}
	return nil
}
