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

// Package runcontrol sequences runs: booting the device, starting and
// stopping runs, the snap-and-log event, and escalating battery and
// storage failures to the device status.
//
// A Controller is not safe for concurrent use. Run owns it; other
// goroutines reach it through Do.
package runcontrol

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/TheCacophonyProject/plt-controller/deployment"
	"github.com/TheCacophonyProject/plt-controller/hardware"
	"github.com/TheCacophonyProject/plt-controller/loglimiter"
	"github.com/TheCacophonyProject/plt-controller/settings"
	"github.com/TheCacophonyProject/plt-controller/status"
	"github.com/TheCacophonyProject/plt-controller/storage"
	"github.com/TheCacophonyProject/plt-controller/usage"
)

const (
	BatteryWarnPercent  = 20
	BatteryErrorPercent = 10
)

var (
	ErrBooting    = errors.New("still booting")
	ErrHardware   = errors.New("critical hardware errors")
	ErrRunning    = errors.New("imaging is in progress")
	ErrNotRunning = errors.New("not running")
	ErrStorage    = errors.New("storage failure")
)

type Config struct {
	PollInterval         time.Duration `yaml:"poll-interval"`
	BatteryCheckInterval time.Duration `yaml:"battery-check-interval"`
	BatteryColumns       bool          `yaml:"battery-columns"`
	UsageFlushEvents     int           `yaml:"usage-flush-events"`
	AutoRun              bool          `yaml:"auto-run"`

	// WarningsOnly downgrades hardware errors found at boot to warnings so
	// a partly assembled device can be run on the bench.
	WarningsOnly bool `yaml:"warnings-only"`
}

func DefaultConfig() Config {
	return Config{
		PollInterval:         50 * time.Millisecond,
		BatteryCheckInterval: time.Minute,
		BatteryColumns:       true,
		UsageFlushEvents:     usage.UpdateIntervalEvents,
	}
}

// recordingWindow is the daily window scheduled runs happen in.
type recordingWindow interface {
	Active() bool
}

type Controller struct {
	conf     Config
	hw       Hardware
	storage  *storage.Storage
	status   *status.Status
	settings settings.Settings
	usage    usage.Usage
	events   EventReporter
	details  map[string]interface{}
	window   recordingWindow
	limiter  *loglimiter.LogLimiter
	nowFunc  func() time.Time
	notify   func()
	requests chan func()

	recentEvent       time.Time
	lastBatteryCheck  time.Time
	eventsSinceFlush  int
	mainBattery       batteryLatch
	controllerBattery batteryLatch
	windowWasActive   bool
	scheduledRun      bool
}

// New returns a controller for the hardware and storage. Boot must be
// called before anything else. events may be nil.
func New(conf Config, hw Hardware, store *storage.Storage, events EventReporter) *Controller {
	if conf.UsageFlushEvents < 1 {
		conf.UsageFlushEvents = usage.UpdateIntervalEvents
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = DefaultConfig().PollInterval
	}
	if hw.Clock != nil {
		store.SetNowFunc(hw.Clock.Now)
	}
	return &Controller{
		conf:     conf,
		hw:       hw,
		storage:  store,
		status:   status.New(hw.Lights),
		settings: settings.Default(),
		events:   events,
		limiter:  loglimiter.New(10 * time.Minute),
		nowFunc:  time.Now,
		requests: make(chan func()),
	}
}

// SetDeployment attaches the device identity to reported events and, when
// auto-run is enabled, schedules runs inside the recording window.
func (c *Controller) SetDeployment(d *deployment.Config) {
	c.details = d.Details()
	if d.HasWindow() {
		c.window = d.Window
	}
}

// SetNotify sets a function called after every poll. pltd uses it to pet
// the systemd watchdog.
func (c *Controller) SetNotify(notify func()) {
	c.notify = notify
}

func (c *Controller) Status() *status.Status      { return c.status }
func (c *Controller) Storage() *storage.Storage   { return c.storage }
func (c *Controller) Hardware() Hardware          { return c.hw }
func (c *Controller) Settings() settings.Settings { return c.settings }

// Usage returns the usage counters with the camera and laser counters
// brought up to date.
func (c *Controller) Usage() usage.Usage {
	c.syncDeviceUsage()
	return c.usage
}

// Boot brings the device up: lights test, card mount, settings, usage
// and a hardware check that decides the starting status.
func (c *Controller) Boot() {
	log.Print("booting")
	c.status.SetHardware(status.HardwareBooting)
	c.status.SetSoftware(status.SoftwareBooting)
	c.status.SetCamera(status.CameraOff)
	if c.hw.Lights != nil {
		if err := c.hw.Lights.TestCycle(); err != nil {
			log.Printf("lights test failed: %v", err)
		}
		c.status.Refresh()
	}

	mountErr := c.storage.Mount()
	if mountErr != nil {
		log.Printf("SD card: %v", mountErr)
	}
	c.writeStatus("")
	c.writeStatus("Boot")

	c.loadSettings()
	c.loadUsage()
	c.checkHardware(mountErr)
	log.Printf("boot complete: %s", c.status.LightString())
}

func (c *Controller) loadSettings() {
	values := c.storage.LoadKeyValue(storage.SettingsFilename)
	if values == nil {
		log.Print("no settings found, using defaults")
		c.settings = settings.Default()
		c.saveSettings()
		return
	}
	c.settings = settings.FromKeyValue(values)
	log.Printf("settings: interval %v, burst size %d, laser continuous %t",
		c.settings.FrameInterval, c.settings.BurstSize, c.settings.LaserContinuous)
}

func (c *Controller) loadUsage() {
	c.usage = usage.FromKeyValue(c.storage.LoadKeyValue(storage.UsageFilename))
	c.usage.NumberOfBoots++
	c.usage.Start(c.nowFunc())
	c.hw.Camera.SetUsage(c.usage.NumberOfCameraBoots, c.usage.CameraUptimeSeconds)
	c.hw.Laser.SetUsage(c.usage.NumberOfLaserBoots, c.usage.LaserUptimeSeconds)
	c.saveUsage()
}

// missingHardware returns the names of peripherals that were not found.
func (c *Controller) missingHardware() []string {
	var missing []string
	if s := c.hw.Sensors; s != nil {
		if !s.InertiaPresent() {
			missing = append(missing, hardware.InertiaSensorName)
		}
		if !s.PressurePresent() {
			missing = append(missing, hardware.PressureSensorName)
		}
		if !s.TemperaturePresent() {
			missing = append(missing, hardware.TemperatureSensorName)
		}
	}
	if c.hw.Clock == nil || !c.hw.Clock.Present() {
		missing = append(missing, hardware.ClockName)
	}
	for _, b := range []BatteryMonitor{c.hw.ControllerBattery, c.hw.MainBattery} {
		if b != nil && !b.Present() {
			missing = append(missing, b.Name())
		}
	}
	return missing
}

func (c *Controller) checkHardware(mountErr error) {
	hw := status.HardwareReady
	sw := status.SoftwareReady
	for _, name := range c.missingHardware() {
		log.Printf("%s not found", name)
		c.writeStatus(name + " not found")
		hw = status.HardwareWarnings
	}
	if mountErr != nil {
		hw = status.HardwareErrors
		sw = status.SoftwareErrors
	}
	if c.conf.WarningsOnly && hw == status.HardwareErrors {
		log.Print("hardware errors downgraded to warnings")
		hw = status.HardwareWarnings
		sw = status.SoftwareReady
	}
	c.status.SetHardware(hw)
	c.status.SetSoftware(sw)
}

// Run polls until ctx is done, running requests submitted with Do
// between polls. An active run is stopped on the way out.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.conf.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if c.status.Running() {
				c.stopRun()
			}
			c.saveUsage()
			return ctx.Err()
		case fn := <-c.requests:
			fn()
		case <-ticker.C:
			c.Poll(c.nowFunc())
			if c.notify != nil {
				c.notify()
			}
		}
	}
}

// Do runs fn on the goroutine running Run and waits for it to finish.
func (c *Controller) Do(ctx context.Context, fn func(*Controller)) error {
	done := make(chan struct{})
	request := func() {
		defer close(done)
		fn(c)
	}
	select {
	case c.requests <- request:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll does one pass of the control loop: the switch, the batteries when
// they are due, the recording window, and an event when one is due.
func (c *Controller) Poll(now time.Time) {
	c.pollSwitch()

	if c.lastBatteryCheck.IsZero() || now.Sub(c.lastBatteryCheck) >= c.conf.BatteryCheckInterval {
		c.lastBatteryCheck = now
		c.CheckBatteries()
	}

	c.pollSchedule()

	if c.status.Running() && now.Sub(c.recentEvent) >= c.settings.FrameInterval {
		c.recentEvent = now
		c.logEvent()
	}
}

func (c *Controller) pollSwitch() {
	if c.hw.Switch == nil {
		return
	}
	c.hw.Switch.Update()
	if !c.hw.Switch.Pressed() {
		return
	}
	if c.status.Running() {
		log.Print("switch pressed, stopping")
		if err := c.Stop(); err != nil {
			log.Printf("stop failed: %v", err)
		}
		return
	}
	log.Print("switch pressed, starting")
	if err := c.Start(); err != nil {
		log.Printf("start failed: %v", err)
	}
}

// pollSchedule starts a run when the recording window opens and stops
// it when the window closes. Runs started by hand are left alone.
func (c *Controller) pollSchedule() {
	if !c.conf.AutoRun || c.window == nil {
		return
	}
	active := c.window.Active()
	opened := active && !c.windowWasActive
	c.windowWasActive = active

	switch {
	case opened && !c.status.Running():
		log.Print("recording window opened, starting")
		if err := c.Start(); err != nil {
			c.limiter.KeyPrintf("schedule", "scheduled start failed: %v", err)
			return
		}
		c.scheduledRun = true
	case !active && c.scheduledRun && c.status.Running():
		log.Print("recording window closed, stopping")
		if err := c.Stop(); err != nil {
			log.Printf("scheduled stop failed: %v", err)
		}
	}
}

func (c *Controller) report(eventType string, details map[string]interface{}) {
	if c.events == nil {
		return
	}
	all := make(map[string]interface{}, len(details)+len(c.details))
	for k, v := range c.details {
		all[k] = v
	}
	for k, v := range details {
		all[k] = v
	}
	c.events.Report(eventType, all)
}

func (c *Controller) writeStatus(msg string) {
	if err := c.storage.WriteStatus(msg); err != nil {
		c.limiter.KeyPrintf("status-log", "failed to write status log: %v", err)
	}
}
