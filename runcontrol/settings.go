// plt-controller - run control and data logging for the Pelagic Laser Tomographer
//  Copyright (C) 2020, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package runcontrol

import (
	"time"

	"github.com/TheCacophonyProject/plt-controller/storage"
)

// SetFrameInterval changes the time between events. It takes effect from
// the next event, even during a run. The new value is kept when it can't
// be saved; the error then matches ErrStorage.
func (c *Controller) SetFrameInterval(d time.Duration) error {
	if err := c.settings.SetFrameInterval(d); err != nil {
		return err
	}
	return c.saveSettings()
}

func (c *Controller) SetBurstSize(n int) error {
	if c.status.Running() {
		return ErrRunning
	}
	if err := c.settings.SetBurstSize(n); err != nil {
		return err
	}
	return c.saveSettings()
}

func (c *Controller) SetLaserContinuous(continuous bool) error {
	if c.status.Running() {
		return ErrRunning
	}
	c.settings.SetLaserContinuous(continuous)
	return c.saveSettings()
}

func (c *Controller) saveSettings() error {
	if err := c.storage.SaveKeyValue(storage.SettingsFilename, c.settings.Entries()); err != nil {
		c.limiter.KeyPrintf("settings", "failed to save settings: %v", err)
		return &storageFailure{err}
	}
	return nil
}

// syncDeviceUsage copies the camera and laser counters into the usage
// record and adds the controller uptime so far.
func (c *Controller) syncDeviceUsage() {
	c.usage.NumberOfCameraBoots = c.hw.Camera.PowerOns()
	c.usage.CameraUptimeSeconds = c.hw.Camera.UptimeSeconds()
	c.usage.NumberOfLaserBoots = c.hw.Laser.PowerOns()
	c.usage.LaserUptimeSeconds = c.hw.Laser.UptimeSeconds()
	c.usage.UpdateUptime(c.nowFunc())
}

func (c *Controller) saveUsage() {
	c.syncDeviceUsage()
	c.eventsSinceFlush = 0
	if err := c.storage.SaveKeyValue(storage.UsageFilename, c.usage.Entries()); err != nil {
		c.limiter.KeyPrintf("usage", "failed to save usage: %v", err)
	}
}
