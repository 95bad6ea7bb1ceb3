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

package console

import (
	"bytes"
	"runtime"

	"github.com/TheCacophonyProject/plt-controller/hardware"
	"github.com/TheCacophonyProject/plt-controller/runcontrol"
	"github.com/TheCacophonyProject/plt-controller/status"
)

func (con *Console) hwinfo(c *runcontrol.Controller, arg string) {
	con.printf("Version %s\r\n", con.softVersion)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	con.printf("Memory:\r\n")
	con.printf("  %-20s %d bytes\r\n", "Heap in use", mem.HeapInuse)
	con.printf("  %-20s %d bytes\r\n", "System", mem.Sys)

	store := c.Storage()
	con.printf("SD card:\r\n")
	if !store.CardPresent() {
		msg := "Missing SD card or bad card format."
		if err := store.Err(); err != nil {
			msg = message(err)
		}
		con.printf("  %-20s ** %s\r\n", "Format", msg)
	} else {
		switch fat := store.FormatType(); fat {
		case 16, 32:
			con.printf("  %-20s FAT%d\r\n", "Format", fat)
		default:
			con.printf("  %-20s ** Unknown\r\n", "Format")
		}
		con.printf("  %-20s %d bytes\r\n", "Capacity", store.Capacity())
		con.printf("  %-20s %d bytes (%0.3f%%)\r\n", "In use", store.SpaceUsed(), store.SpaceUsedPercent())
	}

	hw := c.Hardware()
	con.printf("Components:\r\n")
	con.printf("  %-20s %s\r\n", "Lights", c.Status().LightString())
	con.battery("Main battery", hw.MainBattery)
	con.battery("Controller battery", hw.ControllerBattery)

	if s := hw.Sensors; s != nil {
		con.component("Inertia module", s.InertiaPresent(), hardware.InertiaSensorName)
		con.component("Pressure sensor", s.PressurePresent(), hardware.PressureSensorName)
		con.component("Temperature sensor", s.TemperaturePresent(), hardware.TemperatureSensorName)
	}

	if clockPresent(c) {
		con.printf("  %-20s %s\r\n", "Real time clock", nowString(c))
		con.printf("    %-18s %s\r\n", "Date", nowString(c))
		con.printf("    Reminder: verify the correct date and time.\r\n")
	} else {
		con.printf("  %-20s ** %s not found\r\n", "Real time clock", hardware.ClockName)
		con.printf("    %-18s %s\r\n", "Date", nowString(c))
		con.printf("    Reminder: with no clock, dates are 1/1/2000 + ms since boot.\r\n")
	}
	con.printf("    Type 'date Y/M/D h:m:s' to set.\r\n")
}

func (con *Console) battery(label string, b runcontrol.BatteryMonitor) {
	if b == nil {
		return
	}
	if !b.Present() {
		con.printf("  %-20s ** %s not found\r\n", label, b.Name())
		return
	}
	percent, err := b.Percent()
	if err != nil {
		con.printf("  %-20s ** %v\r\n", label, err)
		return
	}
	volts, err := b.Voltage()
	if err != nil {
		con.printf("  %-20s ** %v\r\n", label, err)
		return
	}
	note := ""
	switch {
	case percent < runcontrol.BatteryErrorPercent:
		note = "** Critically low"
	case percent < runcontrol.BatteryWarnPercent:
		note = "** Low"
	}
	con.printf("  %-20s %f%% (%f volts) %s\r\n", label, percent, volts, note)
}

func (con *Console) component(label string, present bool, name string) {
	if present {
		con.printf("  %-20s Ready\r\n", label)
	} else {
		con.printf("  %-20s ** %s not found\r\n", label, name)
	}
}

// StatusReport returns the text the status command prints.
func StatusReport(c *runcontrol.Controller) string {
	var buf bytes.Buffer
	con := &Console{out: &buf}
	con.status(c, "")
	return buf.String()
}

func (con *Console) status(c *runcontrol.Controller, arg string) {
	s := c.Status()
	if s.Booting() {
		con.printf("Still booting. Not yet ready.\r\n")
		return
	}
	if s.HasErrors() {
		con.printf("Not ready due to critical hardware errors.\r\n")
		con.printf("Type 'hwinfo' for hardware info.\r\n")
	}
	switch {
	case s.Running():
		con.printf("Running (imaging and logging in progress).\r\n")
	case s.Hardware() == status.HardwareWarnings:
		con.printf("Ready, but there are problems that limit some activity.\r\n")
		con.printf("Type 'hwinfo' for hardware info.\r\n")
	case !s.HasErrors():
		con.printf("Ready.\r\n")
	}

	u := c.Usage()
	con.printf("Usage:\r\n")
	con.printf("  %-20s %d boots, %d seconds powered on, %d events logged\r\n",
		"Device", u.NumberOfBoots, u.ControllerUptimeSeconds, u.NumberOfEventsLogged)
	con.printf("  %-20s %d boots, %d seconds powered on, %d images shot\r\n",
		"Camera", u.NumberOfCameraBoots, u.CameraUptimeSeconds, u.NumberOfImagesSnapped)
	con.printf("  %-20s %d boots, %d seconds powered on\r\n",
		"Laser", u.NumberOfLaserBoots, u.LaserUptimeSeconds)

	set := c.Settings()
	con.printf("Settings:\r\n")
	con.printf("  %-20s %d images\r\n", "Burst size", set.BurstSize)
	con.printf("  %-20s %d ms\r\n", "Image interval", set.FrameInterval.Milliseconds())
	if set.LaserContinuous {
		con.printf("  %-20s Continuous. Laser on for whole run.\r\n", "Laser mode")
	} else {
		con.printf("  %-20s Normal. Laser turned on for each shot or burst.\r\n", "Laser mode")
	}

	hw := c.Hardware()
	con.printf("State:\r\n")
	if clockPresent(c) {
		con.printf("  %-20s %s\r\n", "Date", nowString(c))
	} else {
		con.printf("  %-20s %s (clock not found)\r\n", "Date", nowString(c))
	}
	con.printf("  %-20s %s\r\n", "Laser power", onOff(hw.Laser.IsPowerOn()))
	con.printf("  %-20s %s\r\n", "Camera power", onOff(hw.Camera.IsPowerOn()))
	if !s.Running() {
		con.printf("  %-20s off\r\n", "Logging")
		return
	}
	con.printf("  %-20s %s\r\n", "Logging to", c.Storage().DataLogName())
	con.printf("  %-20s %d\r\n", "Log entries", c.Storage().DataLogEntries())
}

func (con *Console) sensors(c *runcontrol.Controller, arg string) {
	s := c.Hardware().Sensors
	if s == nil {
		con.printf("No sensors configured.\r\n")
		return
	}
	if !s.InertiaPresent() || !s.PressurePresent() || !s.TemperaturePresent() {
		con.printf("Some sensors not found. Values may not be valid.\r\n")
	}

	r := s.Read()
	con.printf("  %-20s %f mbar\r\n", "Pressure", r.Pressure)
	con.printf("  %-20s %f m\r\n", "Depth", r.Depth)
	con.printf("  %-20s %f C\r\n", "Water temp", r.WaterTemperature)
	con.printf("  %-20s %f C\r\n", "Device temp", r.DeviceTemperature)
	con.printf("  %-20s %f x %f x %f g\r\n", "Accelerometer",
		r.Acceleration[0], r.Acceleration[1], r.Acceleration[2])
	con.printf("  %-20s %f x %f x %f gauss\r\n", "Magnetometer",
		r.Magnetic[0], r.Magnetic[1], r.Magnetic[2])
	con.printf("  %-20s %f x %f x %f dps\r\n", "Gyroscope",
		r.Gyroscope[0], r.Gyroscope[1], r.Gyroscope[2])
}
