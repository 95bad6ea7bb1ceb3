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

// Package usage tracks lifetime counters for the device, camera and laser.
package usage

import (
	"strconv"
	"time"

	"github.com/TheCacophonyProject/plt-controller/storage"
)

// UpdateIntervalEvents is how many events pass between writes of the
// usage file.
const UpdateIntervalEvents = 60

const (
	numberOfBootsKey           = "numberOfBoots"
	numberOfCameraBootsKey     = "numberOfCameraBoots"
	numberOfLaserBootsKey      = "numberOfLaserBoots"
	numberOfEventsLoggedKey    = "numberOfEventsLogged"
	numberOfImagesSnappedKey   = "numberOfImagesSnapped"
	controllerUptimeSecondsKey = "controllerUptimeSeconds"
	cameraUptimeSecondsKey     = "cameraUptimeSeconds"
	laserUptimeSecondsKey      = "laserUptimeSeconds"
)

// Usage holds counters that only ever increase.
type Usage struct {
	NumberOfBoots           uint32
	NumberOfCameraBoots     uint32
	NumberOfLaserBoots      uint32
	NumberOfEventsLogged    uint32
	NumberOfImagesSnapped   uint32
	ControllerUptimeSeconds uint32
	CameraUptimeSeconds     uint32
	LaserUptimeSeconds      uint32

	recentUpdate time.Time
}

// Start marks the time controller uptime is counted from.
func (u *Usage) Start(now time.Time) {
	u.recentUpdate = now
}

// UpdateUptime adds the whole seconds since the last update to the
// controller uptime. Partial seconds carry over to the next update.
func (u *Usage) UpdateUptime(now time.Time) {
	if u.recentUpdate.IsZero() {
		u.recentUpdate = now
		return
	}
	secs := now.Sub(u.recentUpdate) / time.Second
	if secs <= 0 {
		return
	}
	u.ControllerUptimeSeconds += uint32(secs)
	u.recentUpdate = u.recentUpdate.Add(secs * time.Second)
}

// Entries returns the counters in usage file order.
func (u *Usage) Entries() []storage.Entry {
	format := func(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
	return []storage.Entry{
		{Key: numberOfBootsKey, Value: format(u.NumberOfBoots)},
		{Key: numberOfCameraBootsKey, Value: format(u.NumberOfCameraBoots)},
		{Key: numberOfLaserBootsKey, Value: format(u.NumberOfLaserBoots)},
		{Key: numberOfEventsLoggedKey, Value: format(u.NumberOfEventsLogged)},
		{Key: numberOfImagesSnappedKey, Value: format(u.NumberOfImagesSnapped)},
		{Key: controllerUptimeSecondsKey, Value: format(u.ControllerUptimeSeconds)},
		{Key: cameraUptimeSecondsKey, Value: format(u.CameraUptimeSeconds)},
		{Key: laserUptimeSecondsKey, Value: format(u.LaserUptimeSeconds)},
	}
}

// FromKeyValue builds usage from a usage file's values. Missing or
// invalid values are zero.
func FromKeyValue(values map[string]string) Usage {
	parse := func(key string) uint32 {
		n, err := strconv.ParseUint(values[key], 10, 32)
		if err != nil {
			return 0
		}
		return uint32(n)
	}
	return Usage{
		NumberOfBoots:           parse(numberOfBootsKey),
		NumberOfCameraBoots:     parse(numberOfCameraBootsKey),
		NumberOfLaserBoots:      parse(numberOfLaserBootsKey),
		NumberOfEventsLogged:    parse(numberOfEventsLoggedKey),
		NumberOfImagesSnapped:   parse(numberOfImagesSnappedKey),
		ControllerUptimeSeconds: parse(controllerUptimeSecondsKey),
		CameraUptimeSeconds:     parse(cameraUptimeSecondsKey),
		LaserUptimeSeconds:      parse(laserUptimeSecondsKey),
	}
}
