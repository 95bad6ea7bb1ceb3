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

package hardware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"

	"github.com/TheCacophonyProject/plt-controller/status"
)

type fakePin struct {
	levels []gpio.Level
	err    error
}

func (p *fakePin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}
	p.levels = append(p.levels, l)
	return nil
}

func (p *fakePin) pulses() int {
	n := 0
	for _, l := range p.levels {
		if l == gpio.High {
			n++
		}
	}
	return n
}

type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept += d
	c.now = c.now.Add(d)
}

func newTestCamera(clock *fakeClock) (*Camera, *fakePin, *fakePin, *fakePin, *fakePin) {
	shutter, power, set, unset := &fakePin{}, &fakePin{}, &fakePin{}, &fakePin{}
	c := newCamera(shutter, power, set, unset)
	c.sleep = clock.Sleep
	c.nowFunc = clock.Now
	return c, shutter, power, set, unset
}

func TestCameraPowerOn(t *testing.T) {
	clock := newFakeClock()
	c, _, power, set, unset := newTestCamera(clock)

	require.NoError(t, c.SetPower(true, false))
	assert.True(t, c.IsPowerOn())
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low}, power.levels)
	assert.Equal(t, 1, set.pulses())
	assert.Equal(t, 0, unset.pulses())
	assert.True(t, clock.slept >= CameraPowerUpDelay)
	assert.EqualValues(t, 1, c.PowerOns())

	// Already on so nothing is pulsed.
	require.NoError(t, c.SetPower(true, false))
	assert.Equal(t, 1, power.pulses())
	assert.EqualValues(t, 1, c.PowerOns())
}

func TestCameraForcedOff(t *testing.T) {
	clock := newFakeClock()
	c, _, power, _, unset := newTestCamera(clock)

	require.NoError(t, c.SetPower(false, false))
	assert.Equal(t, 0, power.pulses())

	require.NoError(t, c.SetPower(false, true))
	assert.Equal(t, 1, power.pulses())
	assert.Equal(t, 1, unset.pulses())
	assert.False(t, c.IsPowerOn())
}

func TestCameraUptime(t *testing.T) {
	clock := newFakeClock()
	c, _, _, _, _ := newTestCamera(clock)
	c.SetUsage(4, 100)

	require.NoError(t, c.SetPower(true, false))
	clock.now = clock.now.Add(30 * time.Second)
	assert.EqualValues(t, 130, c.UptimeSeconds())

	require.NoError(t, c.SetPower(false, false))
	clock.now = clock.now.Add(time.Hour)
	assert.EqualValues(t, 130, c.UptimeSeconds())
	assert.EqualValues(t, 5, c.PowerOns())
}

func TestCameraSnap(t *testing.T) {
	clock := newFakeClock()
	c, shutter, _, _, _ := newTestCamera(clock)

	require.NoError(t, c.Snap(3))
	assert.Equal(t, 0, shutter.pulses(), "snap does nothing while off")

	require.NoError(t, c.SetPower(true, false))
	require.NoError(t, c.Snap(3))
	assert.Equal(t, 3, shutter.pulses())
}

func TestCameraRelayFailure(t *testing.T) {
	clock := newFakeClock()
	c, _, power, _, _ := newTestCamera(clock)
	power.err = errors.New("gpio gone")

	assert.Error(t, c.SetPower(true, false))
	assert.False(t, c.IsPowerOn())
	assert.EqualValues(t, 0, c.PowerOns())
}

func TestCameraIntensifierFailure(t *testing.T) {
	clock := newFakeClock()
	c, _, power, set, unset := newTestCamera(clock)
	set.err = errors.New("gpio gone")

	assert.Error(t, c.SetPower(true, false))
	assert.True(t, c.IsPowerOn(), "the camera relay has already switched")
	assert.Equal(t, 1, power.pulses())
	assert.EqualValues(t, 1, c.PowerOns())

	// Turning off again pulses the relay rather than being skipped.
	require.NoError(t, c.SetPower(false, false))
	assert.False(t, c.IsPowerOn())
	assert.Equal(t, 2, power.pulses())
	assert.Equal(t, 1, unset.pulses())
}

func TestLaser(t *testing.T) {
	clock := newFakeClock()
	pin := &fakePin{}
	l := newLaser(pin)
	l.sleep = clock.Sleep
	l.nowFunc = clock.Now

	require.NoError(t, l.SetPower(true))
	require.NoError(t, l.SetPower(true))
	assert.Equal(t, []gpio.Level{gpio.High}, pin.levels)
	assert.EqualValues(t, 1, l.PowerOns())

	require.NoError(t, l.SetPower(false))
	assert.False(t, l.IsPowerOn())
}

func TestLaserTestCycle(t *testing.T) {
	clock := newFakeClock()
	pin := &fakePin{}
	l := newLaser(pin)
	l.sleep = clock.Sleep
	l.nowFunc = clock.Now

	require.NoError(t, l.TestCycle())
	assert.False(t, l.IsPowerOn())
	assert.Equal(t, 3, pin.pulses())
	assert.Equal(t, gpio.Low, pin.levels[len(pin.levels)-1])
	assert.EqualValues(t, 3, l.PowerOns())
}

type fakeStrip struct {
	writes [][]byte
}

func (s *fakeStrip) Write(p []byte) (int, error) {
	s.writes = append(s.writes, append([]byte(nil), p...))
	return len(p), nil
}

func TestLightsShow(t *testing.T) {
	strip := &fakeStrip{}
	l := newLights(strip)

	lights := status.LightsFor(status.HardwareWarnings, status.SoftwareErrors, status.CameraShooting)
	require.NoError(t, l.Show(lights))
	require.Len(t, strip.writes, 1)
	assert.Equal(t, []byte{5, 5, 0, 10, 0, 0, 10, 10, 10}, strip.writes[0])
}

func TestLightsTestCycle(t *testing.T) {
	strip := &fakeStrip{}
	board := &fakePin{}
	l := newLights(strip, board)
	l.sleep = func(time.Duration) {}

	require.NoError(t, l.TestCycle())
	assert.Len(t, strip.writes, 5*status.NumberOfLights)
	assert.Equal(t, []byte{10, 0, 0, 0, 0, 0, 0, 0, 0}, strip.writes[0])
	assert.Equal(t, make([]byte, 9), strip.writes[len(strip.writes)-1])
	assert.Equal(t, gpio.Low, board.levels[len(board.levels)-1])
}
