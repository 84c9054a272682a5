// Package cast manages ephemeral casting sessions to playback devices.
package cast

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSessionNotFound = errors.New("cast session not found")
	ErrInvalidMovieID  = errors.New("movie id must be positive")
	ErrInvalidAddress  = errors.New("device address must not be empty")
)

// DeviceType identifies the kind of playback target.
type DeviceType string

const (
	DeviceChromecast DeviceType = "chromecast"
	DeviceAirPlay    DeviceType = "airplay"
	DeviceAndroidTV  DeviceType = "android_tv"
	DeviceOther      DeviceType = "other"
)

// DeviceStatus is the reachability of a device.
type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "online"
	DeviceOffline DeviceStatus = "offline"
)

// CastDevice is a discoverable playback target.
type CastDevice struct {
	ID      string       `json:"id" yaml:"id"`
	Name    string       `json:"name" yaml:"name"`
	Address string       `json:"ip" yaml:"ip"`
	Type    DeviceType   `json:"type" yaml:"type"`
	Status  DeviceStatus `json:"status" yaml:"status"`
}

// SessionState is a position in the session lifecycle.
type SessionState string

const (
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
	StateDisconnected SessionState = "disconnected"
)

// CastSession is one active or just-stopped cast.
type CastSession struct {
	ID            string       `json:"castId"`
	MovieID       int64        `json:"movieId"`
	TargetAddress string       `json:"deviceIp"`
	State         SessionState `json:"status"`
	StartedAt     time.Time    `json:"startedAt"`
	// ConnectedAt is set once the session reaches connected.
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`

	generation uint64
}

// CastInfo describes what a movie can be cast to.
type CastInfo struct {
	MovieID            int64        `json:"movieId"`
	AvailableDevices   []CastDevice `json:"availableDevices"`
	SupportedProtocols []string     `json:"supportedProtocols"`
}

// SupportedProtocols lists the casting protocols offered for every movie.
var SupportedProtocols = []string{"chromecast", "airplay", "dlna"}

// SessionID derives the deterministic session id for a movie and target.
func SessionID(movieID int64, address string) string {
	return fmt.Sprintf("cast_%d_%s", movieID, address)
}

func (s *CastSession) clone() *CastSession {
	c := *s
	if s.ConnectedAt != nil {
		t := *s.ConnectedAt
		c.ConnectedAt = &t
	}
	return &c
}
