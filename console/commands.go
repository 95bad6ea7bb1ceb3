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
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/TheCacophonyProject/plt-controller/hardware"
	"github.com/TheCacophonyProject/plt-controller/runcontrol"
	"github.com/TheCacophonyProject/plt-controller/settings"
	"github.com/TheCacophonyProject/plt-controller/storage"
)

const dateFormat = "2006-01-02T15:04:05"

func message(err error) string {
	var serr *storage.Error
	if errors.As(err, &serr) {
		return serr.Message()
	}
	return err.Error()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func nowString(c *runcontrol.Controller) string {
	if clock := c.Hardware().Clock; clock != nil {
		return clock.Now().Format(dateFormat)
	}
	return time.Now().Format(dateFormat)
}

func clockPresent(c *runcontrol.Controller) bool {
	clock := c.Hardware().Clock
	return clock != nil && clock.Present()
}

func (con *Console) date(c *runcontrol.Controller, arg string) {
	if arg != "" {
		if !clockPresent(c) {
			con.printf("%s\r\n", hardware.ErrNoRTC)
			return
		}
		t, err := hardware.ParseDate(arg)
		if err != nil {
			con.printf("%s\r\n", hardware.ErrBadDate)
			return
		}
		if err := c.SetDate(t); err != nil {
			con.printf("Date not set: %v\r\n", err)
			return
		}
		con.printf("%s\r\n", nowString(c))
		return
	}

	if !clockPresent(c) {
		con.printf("The real time clock was not found. Dates are 1/1/2000 + ms since boot.\r\n")
	}
	con.printf("%s\r\n", nowString(c))
}

func (con *Console) version(c *runcontrol.Controller, arg string) {
	con.printf("%s\r\n", con.softVersion)
}

func (con *Console) test(c *runcontrol.Controller, arg string) {
	switch arg {
	case "lights":
		con.printf("Testing lights...\r\n")
		if err := c.TestLights(); err != nil {
			con.printf("Lights test failed: %v\r\n", err)
		}
	case "laser":
		con.printf("Testing laser...\r\n")
		err := c.TestLaser()
		if err == runcontrol.ErrRunning {
			con.printf("Cannot test the laser while imaging is in progress.\r\n")
		} else if err != nil {
			con.printf("Laser test failed: %v\r\n", err)
		}
	default:
		con.help(c, "test")
	}
	c.Status().Refresh()
}

func (con *Console) interval(c *runcontrol.Controller, arg string) {
	if arg == "" {
		con.printf("%d ms\r\n", c.Settings().FrameInterval/time.Millisecond)
		return
	}
	ms, err := strconv.ParseUint(arg, 10, 32)
	if err == nil {
		err = c.SetFrameInterval(time.Duration(ms) * time.Millisecond)
	}
	switch {
	case errors.Is(err, runcontrol.ErrStorage):
		con.printf("Frame interval set to %d ms but not saved: %s\r\n",
			c.Settings().FrameInterval/time.Millisecond, message(err))
	case err != nil:
		con.printf("Bad interval. Use >= %d ms or 0 to reset to default.\r\n",
			settings.MinimumFrameInterval/time.Millisecond)
	case ms == 0:
		con.printf("Frame interval reset to default %d ms\r\n", c.Settings().FrameInterval/time.Millisecond)
	default:
		con.printf("Frame interval set to %d ms\r\n", c.Settings().FrameInterval/time.Millisecond)
	}
}

func (con *Console) laserMode(c *runcontrol.Controller, arg string) {
	if arg != "" {
		if c.Status().Running() {
			con.printf("Cannot change laser mode while imaging is in progress.\r\n")
			return
		}
		var err error
		switch {
		case strings.HasPrefix(arg, "norm"):
			err = c.SetLaserContinuous(false)
		case strings.HasPrefix(arg, "cont"):
			err = c.SetLaserContinuous(true)
		default:
			con.printf("Unknown mode. Use 'normal' or 'continuous'.\r\n")
			return
		}
		if err != nil {
			con.printf("Laser mode not saved: %s\r\n", message(err))
		}
	}

	if c.Settings().LaserContinuous {
		con.printf("Continuous. Laser will be on for the whole run.\r\n")
	} else {
		con.printf("Normal. Laser will be turned on for each image.\r\n")
	}
}

func (con *Console) burstSize(c *runcontrol.Controller, arg string) {
	if arg != "" {
		if c.Status().Running() {
			con.printf("Cannot change burst size while imaging is in progress.\r\n")
			return
		}
		n, err := strconv.Atoi(arg)
		if err == nil {
			err = c.SetBurstSize(n)
		}
		switch {
		case errors.Is(err, runcontrol.ErrStorage):
			con.printf("Burst size not saved: %s\r\n", message(err))
		case err != nil:
			con.printf("Bad burst size. Use 1 to %d.\r\n", settings.MaxBurstSize)
			return
		}
	}
	con.printf("Shoot %d images at a time.\r\n", c.Settings().BurstSize)
}

func (con *Console) camera(c *runcontrol.Controller, arg string) {
	camera := c.Hardware().Camera
	if arg == "" {
		con.printf("Camera is %s.\r\n", onOff(camera.IsPowerOn()))
		return
	}
	if c.Status().Running() {
		con.printf("Cannot change camera on/off while imaging is in progress.\r\n")
		return
	}

	switch arg {
	case "on":
		if camera.IsPowerOn() {
			con.printf("Camera and intensifier are already on.\r\n")
			con.printf("  If this is not the case, the software is out of sync\r\n")
			con.printf("  with the camera state. Use 'camera forceoff'.\r\n")
			return
		}
		con.printf("Camera and intensifier powering up...\r\n")
		if err := c.CameraPower(true, false); err != nil {
			con.printf("Camera power failed: %v\r\n", err)
			return
		}
		con.printf("Camera and intensifier are on.\r\n")
		con.printf("  Beware: use 'camera off' or the software may get out of sync\r\n")
		con.printf("  with the camera state. Use 'camera forceoff' if that occurs.\r\n")

	case "off":
		if !camera.IsPowerOn() {
			con.printf("Camera is already off.\r\n")
			con.printf("  If this is not the case, the software is out of sync\r\n")
			con.printf("  with the camera state. Use 'camera forceoff'.\r\n")
			return
		}
		con.printf("Camera and intensifier powering down...\r\n")
		if err := c.CameraPower(false, false); err != nil {
			con.printf("Camera power failed: %v\r\n", err)
			return
		}
		con.printf("Camera and intensifier are off.\r\n")

	case "forceoff", "reset":
		con.printf("Camera and intensifier powering down (force)...\r\n")
		if err := c.CameraPower(false, true); err != nil {
			con.printf("Camera power failed: %v\r\n", err)
			return
		}
		con.printf("Camera and intensifier should be off.\r\n")
		con.printf("  If the camera still appears to be on, use this command again.\r\n")

	default:
		con.printf("Unknown camera command: %s\r\n", arg)
		con.printf("Use 'on', 'off', or 'forceoff'.\r\n")
	}
}

func (con *Console) laser(c *runcontrol.Controller, arg string) {
	if arg == "" {
		con.printf("Laser is %s.\r\n", onOff(c.Hardware().Laser.IsPowerOn()))
		return
	}
	if c.Status().Running() {
		con.printf("Cannot change laser on/off while imaging is in progress.\r\n")
		return
	}

	var on bool
	switch arg {
	case "on":
		on = true
		con.printf("Laser powering up...\r\n")
	case "off":
		con.printf("Laser powering down...\r\n")
	default:
		con.printf("Unknown laser command: %s\r\n", arg)
		con.printf("Use 'on' or 'off'.\r\n")
		return
	}
	if err := c.LaserPower(on); err != nil {
		con.printf("Laser power failed: %v\r\n", err)
		return
	}
	con.printf("Laser is %s.\r\n", onOff(on))
}

func (con *Console) reset(c *runcontrol.Controller, arg string) {
	c.Reset()
	con.printf("%s\r\n", c.Status().LightString())
}

func (con *Console) start(c *runcontrol.Controller, arg string) {
	switch err := c.Start(); err {
	case nil:
		con.printf("Running. Logging to %s.\r\n", c.Storage().DataLogName())
	case runcontrol.ErrBooting:
		con.printf("Still booting. Not yet ready.\r\n")
	case runcontrol.ErrHardware:
		con.printf("Cannot start due to critical hardware errors.\r\n")
		con.printf("Type 'hwinfo' for hardware info.\r\n")
	case runcontrol.ErrRunning:
		con.printf("Device is already started and capturing images.\r\n")
	default:
		con.printf("Start failed: %s\r\n", message(err))
	}
}

func (con *Console) stop(c *runcontrol.Controller, arg string) {
	switch err := c.Stop(); err {
	case nil:
		con.printf("Stopped. %d entries logged to %s.\r\n",
			c.Storage().DataLogEntries(), c.Storage().DataLogName())
	case runcontrol.ErrBooting:
		con.printf("Still booting. Not yet ready.\r\n")
	case runcontrol.ErrNotRunning:
		con.printf("Device is already stopped.\r\n")
	default:
		con.printf("Stop failed: %v\r\n", err)
	}
}

func (con *Console) snap(c *runcontrol.Controller, arg string) {
	n := int(c.Settings().BurstSize)
	if arg != "" {
		n, _ = strconv.Atoi(arg)
		if n < 1 {
			n = 1
		}
	}

	s := c.Status()
	switch {
	case s.Booting():
		con.printf("Still booting. Not yet ready to run.\r\n")
		return
	case s.HasErrors():
		con.printf("Cannot snap due to critical hardware errors.\r\n")
		con.printf("Type 'hwinfo' for hardware info.\r\n")
		return
	case s.Running():
		con.printf("Cannot snap a photo while imaging is in progress.\r\n")
		return
	}

	con.printf("Camera powering up...\r\n")
	if err := c.Snap(n); err != nil {
		con.printf("Snap failed: %v\r\n", err)
		return
	}
	if n == 1 {
		con.printf("One image shot.\r\n")
	} else {
		con.printf("%d images shot.\r\n", n)
	}
}

// fileError reports a failed file command and lets the controller update
// the status for it.
func (con *Console) fileError(c *runcontrol.Controller, err error) {
	con.printf("%s\r\n", message(err))
	c.UpdateStorageStatus(err)
}

func (con *Console) cat(c *runcontrol.Controller, arg string) {
	if arg == "" {
		con.help(c, "cat")
		return
	}
	if err := c.Storage().Cat(con.out, arg); err != nil {
		con.fileError(c, err)
	}
}

func (con *Console) du(c *runcontrol.Controller, arg string) {
	if arg == "" {
		arg = "/"
	}
	n, err := c.Storage().Du(arg)
	if err != nil {
		con.fileError(c, err)
		return
	}
	con.printf("%d bytes\r\n", n)
}

func (con *Console) head(c *runcontrol.Controller, arg string) {
	if arg == "" {
		con.help(c, "head")
		return
	}
	if err := c.Storage().Head(con.out, arg, storage.DefaultLines); err != nil {
		con.fileError(c, err)
	}
}

func (con *Console) tail(c *runcontrol.Controller, arg string) {
	if arg == "" {
		con.help(c, "tail")
		return
	}
	if err := c.Storage().Tail(con.out, arg, storage.DefaultLines); err != nil {
		con.fileError(c, err)
	}
}

func (con *Console) ls(c *runcontrol.Controller, arg string) {
	if arg == "" {
		arg = "/"
	}
	if err := c.Storage().Ls(con.out, arg); err != nil {
		con.fileError(c, err)
	}
}

func (con *Console) rm(c *runcontrol.Controller, arg string) {
	if arg == "" {
		con.help(c, "rm")
		return
	}
	if err := c.Storage().Rm(arg); err != nil {
		con.fileError(c, err)
	}
}
