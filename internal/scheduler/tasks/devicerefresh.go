package tasks

import (
	"context"

	"github.com/reelhouse/reelhouse/internal/config"
	"github.com/reelhouse/reelhouse/internal/scheduler"
)

// DeviceRefresher reloads the cast device list.
type DeviceRefresher interface {
	Refresh(ctx context.Context) error
}

// DefaultDeviceRefreshCron runs the refresh every five minutes.
const DefaultDeviceRefreshCron = "*/5 * * * *"

// RegisterDeviceRefreshTask registers the periodic device discovery refresh.
func RegisterDeviceRefreshTask(sched *scheduler.Scheduler, refresher DeviceRefresher, cfg *config.CastConfig) error {
	cronExpr := cfg.RefreshCron
	if cronExpr == "" {
		cronExpr = DefaultDeviceRefreshCron
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "device-refresh",
		Name:        "Device Refresh",
		Description: "Reloads the list of cast devices from the discovery backend",
		Cron:        cronExpr,
		RunOnStart:  true,
		Func:        refresher.Refresh,
	})
}
