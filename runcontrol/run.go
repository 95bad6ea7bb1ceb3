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
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TheCacophonyProject/plt-controller/events"
	"github.com/TheCacophonyProject/plt-controller/status"
	"github.com/TheCacophonyProject/plt-controller/storage"
)

// storageFailure marks a storage error so that callers can match it with
// errors.Is(err, ErrStorage) and still reach the *storage.Error.
type storageFailure struct {
	err error
}

func (f *storageFailure) Error() string        { return f.err.Error() }
func (f *storageFailure) Unwrap() error        { return f.err }
func (f *storageFailure) Is(target error) bool { return target == ErrStorage }

// checkReady returns why a run or a snap can't begin, or nil.
func (c *Controller) checkReady() error {
	switch {
	case c.status.Booting():
		return ErrBooting
	case c.status.HasErrors():
		return ErrHardware
	case c.status.Running():
		return ErrRunning
	}
	return nil
}

// Start opens a new data log, powers up for the run and logs the first
// event straight away. Any failure leaves the device stopped.
func (c *Controller) Start() error {
	if err := c.checkReady(); err != nil {
		return err
	}

	if err := c.storage.NewDataLog(c.conf.BatteryColumns); err != nil {
		c.startFailed(err)
		return &storageFailure{err}
	}
	log.Printf("starting run, logging to %s", c.storage.DataLogName())

	c.status.SetSoftware(status.SoftwareRunning)
	c.writeStatus("Start")

	if err := c.setCameraPower(true, false); err != nil {
		c.abortStart(err)
		return err
	}
	if c.settings.LaserContinuous {
		if err := c.hw.Laser.SetPower(true); err != nil {
			c.abortStart(err)
			return err
		}
	}

	c.recentEvent = c.nowFunc()
	if err := c.SnapAndLogOnce(int(c.settings.BurstSize)); err != nil {
		c.abortStart(err)
		return err
	}

	c.report(events.RunStarted, map[string]interface{}{"log": c.storage.DataLogName()})
	return nil
}

// startFailed handles a data log that could not be created. Nothing is
// written to the status log unless the card is mounted.
func (c *Controller) startFailed(err error) {
	log.Printf("start failed: %v", err)
	if c.storage.Initialized() {
		c.writeStatus("Start failed: " + storageMessage(err))
	}
	c.escalateStorage(err)
}

// abortStart tears down a run whose first event failed.
func (c *Controller) abortStart(err error) {
	log.Printf("start failed: %v", err)
	c.writeStatus("Start failed: " + storageMessage(err))
	c.storage.CloseDataLog()
	c.powerDown()
	c.status.SetSoftware(status.SoftwareErrors)
	c.escalateStorage(err)
}

// Stop ends the run, closing the data log and powering down.
func (c *Controller) Stop() error {
	if c.status.Booting() {
		return ErrBooting
	}
	if !c.status.Running() {
		return ErrNotRunning
	}
	c.stopRun()
	return nil
}

func (c *Controller) stopRun() {
	entries := c.storage.DataLogEntries()
	name := c.storage.DataLogName()
	c.storage.CloseDataLog()
	c.powerDown()
	c.status.SetSoftware(status.SoftwareReady)
	c.scheduledRun = false

	log.Printf("run stopped, %d entries logged to %s", entries, name)
	c.writeStatus(fmt.Sprintf("Stop, %d entries logged", entries))
	c.saveUsage()
	c.report(events.RunStopped, map[string]interface{}{"log": name, "entries": entries})
}

// powerDown turns the camera and laser off, whatever the laser mode.
func (c *Controller) powerDown() {
	if err := c.hw.Laser.SetPower(false); err != nil {
		log.Printf("failed to turn laser off: %v", err)
	}
	if err := c.setCameraPower(false, false); err != nil {
		log.Printf("failed to turn camera off: %v", err)
	}
}

// Snap shoots n images outside of a run, logging nothing.
func (c *Controller) Snap(n int) error {
	if err := c.checkReady(); err != nil {
		return err
	}
	if n < 1 {
		n = 1
	}
	return c.SnapAndLogOnce(n)
}

// SnapAndLogOnce is one event. Power the camera and laser if they are off,
// shoot a burst of images, then put the power back how it was. The laser
// is left alone in continuous mode. The event is counted, and when a data
// log is open a row of sensor readings is appended to it.
//
// The power is always restored, whatever fails. A data log failure is
// returned as an error matching ErrStorage.
func (c *Controller) SnapAndLogOnce(burst int) error {
	cameraWasOn := c.hw.Camera.IsPowerOn()
	laserWasOn := c.hw.Laser.IsPowerOn()
	manageLaser := !c.settings.LaserContinuous

	var shootErr error
	if !cameraWasOn {
		shootErr = c.setCameraPower(true, false)
	}
	if shootErr == nil && manageLaser && !laserWasOn {
		shootErr = c.hw.Laser.SetPower(true)
	}
	shot := 0
	if shootErr == nil {
		c.status.SetCamera(status.CameraShooting)
		shootErr = c.hw.Camera.Snap(burst)
		c.status.SetCamera(status.CameraReady)
		if shootErr == nil {
			shot = burst
		}
	}

	if manageLaser && !laserWasOn && c.hw.Laser.IsPowerOn() {
		if err := c.hw.Laser.SetPower(false); err != nil {
			log.Printf("failed to turn laser off: %v", err)
		}
	}
	if !cameraWasOn && c.hw.Camera.IsPowerOn() {
		if err := c.setCameraPower(false, false); err != nil {
			log.Printf("failed to turn camera off: %v", err)
		}
	}

	c.usage.NumberOfEventsLogged++
	c.usage.NumberOfImagesSnapped += uint32(shot)
	c.usage.UpdateUptime(c.nowFunc())

	var logErr error
	if c.storage.DataLogOpen() {
		if err := c.storage.WriteDataLog(c.sample()); err != nil {
			logErr = &storageFailure{err}
		}
	}

	c.eventsSinceFlush++
	if c.eventsSinceFlush >= c.conf.UsageFlushEvents {
		c.saveUsage()
	}

	if logErr != nil {
		return logErr
	}
	if shootErr != nil {
		return fmt.Errorf("camera: %v", shootErr)
	}
	return nil
}

// logEvent is a scheduled event inside a run.
func (c *Controller) logEvent() {
	err := c.SnapAndLogOnce(int(c.settings.BurstSize))
	if err == nil {
		return
	}
	if !errors.Is(err, ErrStorage) {
		c.limiter.KeyPrintf("event", "event failed: %v", err)
		return
	}

	msg := storageMessage(err)
	log.Printf("data log write failed: %s", msg)
	c.writeStatus("Data log write failed: " + msg)
	c.stopRun()
	c.escalateStorage(err)
}

// sample reads the sensors and batteries into a data row.
func (c *Controller) sample() *storage.DataRecord {
	now := c.now()
	r := &storage.DataRecord{
		Time:         now,
		Milliseconds: int64(now.Nanosecond() / int(time.Millisecond)),
	}
	if c.hw.Sensors != nil {
		readings := c.hw.Sensors.Read()
		r.Pressure = readings.Pressure
		r.Depth = readings.Depth
		r.WaterTemperature = readings.WaterTemperature
		r.DeviceTemperature = readings.DeviceTemperature
		r.Acceleration = readings.Acceleration
		r.Magnetic = readings.Magnetic
		r.Gyroscope = readings.Gyroscope
	}
	r.Batteries.ControllerVolts, r.Batteries.ControllerPercent = c.readBattery(c.hw.ControllerBattery)
	r.Batteries.MainVolts, r.Batteries.MainPercent = c.readBattery(c.hw.MainBattery)
	return r
}

// readBattery returns zeros for a missing monitor or a failed read.
func (c *Controller) readBattery(b BatteryMonitor) (volts, percent float64) {
	if b == nil || !b.Present() {
		return 0, 0
	}
	volts, err := b.Voltage()
	if err == nil {
		percent, err = b.Percent()
	}
	if err != nil {
		c.limiter.KeyPrintf("battery-read-"+b.Name(), "battery read failed: %v", err)
		return 0, 0
	}
	return volts, percent
}

func (c *Controller) now() time.Time {
	if c.hw.Clock != nil {
		return c.hw.Clock.Now()
	}
	return c.nowFunc()
}

// Reset stops any run, powers down, closes the data log and checks the
// hardware again. It is the only way out of an error status short of a
// reboot.
func (c *Controller) Reset() {
	log.Print("reset")
	if c.status.Running() {
		c.stopRun()
	}
	c.storage.CloseDataLog()
	c.powerDown()
	c.mainBattery = batteryLatch{}
	c.controllerBattery = batteryLatch{}
	c.lastBatteryCheck = time.Time{}

	mountErr := c.storage.Mount()
	if mountErr != nil {
		log.Printf("SD card: %v", mountErr)
	}
	c.writeStatus("Reset")
	c.checkHardware(mountErr)
}

// Format erases the card and then resets.
func (c *Controller) Format() error {
	if c.status.Running() {
		return ErrRunning
	}
	err := c.storage.Format()
	c.Reset()
	if err != nil {
		return &storageFailure{err}
	}
	return nil
}

// setCameraPower switches the camera, moving the camera status through
// Booting to Ready on the way up and to Off on the way down.
func (c *Controller) setCameraPower(on, force bool) error {
	if on && !c.hw.Camera.IsPowerOn() {
		c.status.SetCamera(status.CameraBooting)
	}
	err := c.hw.Camera.SetPower(on, force)
	if c.hw.Camera.IsPowerOn() {
		c.status.SetCamera(status.CameraReady)
	} else {
		c.status.SetCamera(status.CameraOff)
	}
	return err
}

// CameraPower switches the camera by hand. It is refused during a run.
func (c *Controller) CameraPower(on, force bool) error {
	if c.status.Running() {
		return ErrRunning
	}
	return c.setCameraPower(on, force)
}

// LaserPower switches the laser by hand. It is refused during a run.
func (c *Controller) LaserPower(on bool) error {
	if c.status.Running() {
		return ErrRunning
	}
	return c.hw.Laser.SetPower(on)
}

// TestLaser pulses the laser, then leaves it off.
func (c *Controller) TestLaser() error {
	if c.status.Running() {
		return ErrRunning
	}
	return c.hw.Laser.TestCycle()
}

// TestLights cycles the lights and then shows the status again.
func (c *Controller) TestLights() error {
	if c.hw.Lights == nil {
		return nil
	}
	err := c.hw.Lights.TestCycle()
	c.status.Refresh()
	return err
}

// SetDate sets the system and real time clocks.
func (c *Controller) SetDate(t time.Time) error {
	if c.hw.Clock == nil {
		return errors.New("no clock")
	}
	return c.hw.Clock.Set(t)
}
