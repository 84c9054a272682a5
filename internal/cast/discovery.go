package cast

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/reelhouse/reelhouse/internal/metrics"
)

// Discovery finds playback devices on the network.
type Discovery interface {
	Discover(ctx context.Context) ([]CastDevice, error)
}

// DefaultDevices is the inventory used when nothing else is configured.
func DefaultDevices() []CastDevice {
	return []CastDevice{
		{ID: "tv_001", Name: "客厅电视", Address: "192.168.1.100", Type: DeviceChromecast, Status: DeviceOnline},
		{ID: "tv_002", Name: "卧室电视", Address: "192.168.1.101", Type: DeviceChromecast, Status: DeviceOnline},
		{ID: "box_001", Name: "小米盒子", Address: "192.168.1.102", Type: DeviceAndroidTV, Status: DeviceOnline},
	}
}

// StaticDiscovery returns a fixed device list.
type StaticDiscovery struct {
	devices []CastDevice
}

// NewStaticDiscovery creates a static discovery. A nil list uses DefaultDevices.
func NewStaticDiscovery(devices []CastDevice) *StaticDiscovery {
	if devices == nil {
		devices = DefaultDevices()
	}
	return &StaticDiscovery{devices: devices}
}

// Discover returns a copy of the configured devices.
func (d *StaticDiscovery) Discover(_ context.Context) ([]CastDevice, error) {
	out := make([]CastDevice, len(d.devices))
	copy(out, d.devices)
	return out, nil
}

// inventoryFile is the YAML layout of a device inventory.
type inventoryFile struct {
	Devices []CastDevice `yaml:"devices"`
}

// FileDiscovery reads devices from a YAML inventory on every call.
type FileDiscovery struct {
	path string
}

// NewFileDiscovery creates a discovery backed by the inventory at path.
func NewFileDiscovery(path string) *FileDiscovery {
	return &FileDiscovery{path: path}
}

// Discover parses the inventory file.
func (d *FileDiscovery) Discover(ctx context.Context) ([]CastDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device inventory: %w", err)
	}

	var inv inventoryFile
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse device inventory %s: %w", d.path, err)
	}

	devices := make([]CastDevice, 0, len(inv.Devices))
	for i, dev := range inv.Devices {
		if dev.Address == "" {
			return nil, fmt.Errorf("device inventory %s: entry %d has no ip", d.path, i)
		}
		if dev.ID == "" {
			dev.ID = dev.Address
		}
		if dev.Name == "" {
			dev.Name = dev.ID
		}
		if dev.Type == "" {
			dev.Type = DeviceOther
		}
		if dev.Status == "" {
			dev.Status = DeviceOnline
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// CachedDiscovery serves the last successful discovery and is refreshed
// in the background by the scheduler.
type CachedDiscovery struct {
	source Discovery
	logger zerolog.Logger

	mu          sync.RWMutex
	devices     []CastDevice
	refreshedAt time.Time
}

// NewCachedDiscovery wraps source.
func NewCachedDiscovery(source Discovery, logger zerolog.Logger) *CachedDiscovery {
	return &CachedDiscovery{
		source: source,
		logger: logger.With().Str("component", "discovery").Logger(),
	}
}

// Refresh queries the source and replaces the snapshot. On failure the
// previous snapshot is kept.
func (d *CachedDiscovery) Refresh(ctx context.Context) error {
	devices, err := d.source.Discover(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("Device discovery failed")
		return err
	}

	d.mu.Lock()
	d.devices = devices
	d.refreshedAt = time.Now()
	d.mu.Unlock()

	metrics.DevicesDiscovered.Set(float64(len(devices)))
	d.logger.Debug().Int("devices", len(devices)).Msg("Device list refreshed")
	return nil
}

// Discover returns the current snapshot, refreshing first if none exists yet.
func (d *CachedDiscovery) Discover(ctx context.Context) ([]CastDevice, error) {
	d.mu.RLock()
	loaded := !d.refreshedAt.IsZero()
	d.mu.RUnlock()

	if !loaded {
		if err := d.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]CastDevice, len(d.devices))
	copy(out, d.devices)
	return out, nil
}

// RefreshedAt returns when the snapshot was last replaced.
func (d *CachedDiscovery) RefreshedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refreshedAt
}
