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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/plt-controller/hardware"
	"github.com/TheCacophonyProject/plt-controller/status"
	"github.com/TheCacophonyProject/plt-controller/storage"
)

type fakeDevice struct {
	on       bool
	powerOns uint32
	uptime   uint32
	history  []bool
	powerErr error
}

func (d *fakeDevice) IsPowerOn() bool       { return d.on }
func (d *fakeDevice) PowerOns() uint32      { return d.powerOns }
func (d *fakeDevice) UptimeSeconds() uint32 { return d.uptime }

func (d *fakeDevice) SetUsage(powerOns, uptimeSeconds uint32) {
	d.powerOns = powerOns
	d.uptime = uptimeSeconds
}

func (d *fakeDevice) setPower(on bool) error {
	if d.powerErr != nil {
		return d.powerErr
	}
	if on == d.on {
		return nil
	}
	if on {
		d.powerOns++
	}
	d.on = on
	d.history = append(d.history, on)
	return nil
}

type fakeCamera struct {
	fakeDevice
	snaps   []int
	snapErr error
}

func (c *fakeCamera) SetPower(on, force bool) error {
	return c.setPower(on)
}

func (c *fakeCamera) Snap(n int) error {
	if c.snapErr != nil {
		return c.snapErr
	}
	if c.on {
		c.snaps = append(c.snaps, n)
	}
	return nil
}

type fakeLaser struct {
	fakeDevice
	tests int
}

func (l *fakeLaser) SetPower(on bool) error {
	return l.setPower(on)
}

func (l *fakeLaser) TestCycle() error {
	l.tests++
	return nil
}

type fakeLights struct {
	shown []status.Lights
	tests int
}

func (l *fakeLights) Show(lights status.Lights) error {
	l.shown = append(l.shown, lights)
	return nil
}

func (l *fakeLights) TestCycle() error {
	l.tests++
	return nil
}

type fakeSwitch struct {
	pressed bool
}

func (s *fakeSwitch) Update() {}

func (s *fakeSwitch) Pressed() bool {
	pressed := s.pressed
	s.pressed = false
	return pressed
}

type fakeClock struct {
	now     time.Time
	present bool
}

func (c *fakeClock) Present() bool  { return c.present }
func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(t time.Time) error {
	c.now = t
	return nil
}

type fakeBattery struct {
	name    string
	present bool
	percent float64
	err     error
}

func (b *fakeBattery) Name() string  { return b.name }
func (b *fakeBattery) Present() bool { return b.present }

func (b *fakeBattery) Voltage() (float64, error) {
	if b.err != nil {
		return 0, b.err
	}
	return 3.7, nil
}

func (b *fakeBattery) Percent() (float64, error) {
	if b.err != nil {
		return 0, b.err
	}
	return b.percent, nil
}

type fakeSensors struct {
	missingPressure bool
	readings        hardware.Readings
}

func (s *fakeSensors) InertiaPresent() bool     { return true }
func (s *fakeSensors) PressurePresent() bool    { return !s.missingPressure }
func (s *fakeSensors) TemperaturePresent() bool { return true }
func (s *fakeSensors) Read() hardware.Readings  { return s.readings }

type fakeEvents struct {
	types   []string
	details []map[string]interface{}
}

func (e *fakeEvents) Report(eventType string, details map[string]interface{}) {
	e.types = append(e.types, eventType)
	e.details = append(e.details, details)
}

type fakeWindow struct {
	active bool
}

func (w *fakeWindow) Active() bool { return w.active }

var testStart = time.Date(2020, 6, 1, 9, 0, 0, 0, time.UTC)

// rig is a controller with fake hardware and a temporary directory for a
// card.
type rig struct {
	t          *testing.T
	dir        string
	now        time.Time
	camera     *fakeCamera
	laser      *fakeLaser
	lights     *fakeLights
	sw         *fakeSwitch
	clock      *fakeClock
	main       *fakeBattery
	controller *fakeBattery
	sensors    *fakeSensors
	events     *fakeEvents
	c          *Controller
}

func newRig(t *testing.T) *rig {
	dir, err := ioutil.TempDir("", "plt-runcontrol")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	return &rig{
		t:          t,
		dir:        dir,
		now:        testStart,
		camera:     new(fakeCamera),
		laser:      new(fakeLaser),
		lights:     new(fakeLights),
		sw:         new(fakeSwitch),
		clock:      &fakeClock{now: testStart, present: true},
		main:       &fakeBattery{name: "main gauge", present: true, percent: 90},
		controller: &fakeBattery{name: "controller gauge", present: true, percent: 90},
		sensors:    &fakeSensors{readings: hardware.Readings{Pressure: 1013.25, Depth: 0.1}},
		events:     new(fakeEvents),
	}
}

// boot builds the controller and boots it.
func (r *rig) boot(conf Config) *Controller {
	hw := Hardware{
		Camera:            r.camera,
		Laser:             r.laser,
		Lights:            r.lights,
		Switch:            r.sw,
		Clock:             r.clock,
		ControllerBattery: r.controller,
		MainBattery:       r.main,
		Sensors:           r.sensors,
	}
	r.c = New(conf, hw, storage.New(storage.NewDirMedium(r.dir)), r.events)
	r.c.nowFunc = func() time.Time { return r.now }
	r.c.Boot()
	return r.c
}

func (r *rig) advance(d time.Duration) {
	r.now = r.now.Add(d)
	r.clock.now = r.clock.now.Add(d)
}

func (r *rig) poll() {
	r.c.Poll(r.now)
}

func (r *rig) readFile(name string) string {
	buf, err := ioutil.ReadFile(filepath.Join(r.dir, name))
	require.NoError(r.t, err)
	return string(buf)
}

func (r *rig) statusLog() string {
	return r.readFile(storage.StatusLogFilename)
}

// dataRows counts the rows after the header of a data log.
func (r *rig) dataRows(name string) int {
	return strings.Count(r.readFile(name), "\r\n") - 1
}
