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

	"github.com/TheCacophonyProject/plt-controller/hardware"
	"github.com/TheCacophonyProject/plt-controller/status"
)

// PoweredDevice is a relay switched device with lifetime usage counters.
type PoweredDevice interface {
	IsPowerOn() bool
	PowerOns() uint32
	UptimeSeconds() uint32
	SetUsage(powerOns, uptimeSeconds uint32)
}

type Camera interface {
	PoweredDevice
	SetPower(on, force bool) error
	Snap(n int) error
}

type Laser interface {
	PoweredDevice
	SetPower(on bool) error
	TestCycle() error
}

type Lights interface {
	Show(status.Lights) error
	TestCycle() error
}

type Switch interface {
	Update()
	Pressed() bool
}

type Clock interface {
	Present() bool
	Now() time.Time
	Set(time.Time) error
}

type BatteryMonitor interface {
	Name() string
	Present() bool
	Voltage() (float64, error)
	Percent() (float64, error)
}

type Sensors interface {
	InertiaPresent() bool
	PressurePresent() bool
	TemperaturePresent() bool
	Read() hardware.Readings
}

// EventReporter is told about runs starting and stopping and about
// escalated failures.
type EventReporter interface {
	Report(eventType string, details map[string]interface{})
}

// Hardware is the set of peripherals the controller drives. Switch is
// optional.
type Hardware struct {
	Camera            Camera
	Laser             Laser
	Lights            Lights
	Switch            Switch
	Clock             Clock
	ControllerBattery BatteryMonitor
	MainBattery       BatteryMonitor
	Sensors           Sensors
}
