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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
)

type fakeInput struct {
	level gpio.Level
}

func (p *fakeInput) In(gpio.Pull, gpio.Edge) error { return nil }
func (p *fakeInput) Read() gpio.Level             { return p.level }

func TestSwitchPress(t *testing.T) {
	clock := newFakeClock()
	pin := &fakeInput{level: gpio.High}
	s := newSwitch(pin, clock.Now)

	step := func(l gpio.Level, d time.Duration) {
		pin.level = l
		s.Update()
		clock.now = clock.now.Add(d)
		s.Update()
	}

	step(gpio.Low, 60*time.Millisecond)
	assert.False(t, s.Pressed(), "pushing down is not a press")

	step(gpio.High, 60*time.Millisecond)
	assert.True(t, s.Pressed())
	assert.False(t, s.Pressed(), "a press is only reported once")
}

func TestSwitchBounceIgnored(t *testing.T) {
	clock := newFakeClock()
	pin := &fakeInput{level: gpio.High}
	s := newSwitch(pin, clock.Now)

	for i := 0; i < 10; i++ {
		pin.level = gpio.Low
		s.Update()
		clock.now = clock.now.Add(5 * time.Millisecond)
		pin.level = gpio.High
		s.Update()
		clock.now = clock.now.Add(5 * time.Millisecond)
	}
	assert.False(t, s.Pressed())
}

func TestClockWithoutRTC(t *testing.T) {
	clock := newFakeClock()
	c := NewClock("")
	c.nowFunc = clock.Now
	c.boot = clock.now
	require.False(t, c.Present())

	clock.now = clock.now.Add(90 * time.Second)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 1, 30, 0, time.UTC), c.Now())
	assert.Equal(t, ErrNoRTC, c.Set(time.Now()))
}

func TestClockSet(t *testing.T) {
	c := NewClock("")
	c.present = true
	var set time.Time
	c.setSystem = func(t time.Time) error {
		set = t
		return nil
	}
	want := time.Date(2021, 3, 4, 5, 6, 7, 0, time.Local)
	require.NoError(t, c.Set(want))
	assert.Equal(t, want, set)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2021, 1, 2, 12, 30, 15, 0, time.Local)
	for _, s := range []string{
		"2021 1 2 12 30 15",
		"2021-01-02 12:30:15",
		"2021/01/02 12:30.15",
		"01/02/2021 12:30:15",
	} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	for _, s := range []string{
		"",
		"2021 1 2",
		"2021 13 2 12 30 15",
		"2021 2 30 12 30 15",
		"2021 1 2 25 30 15",
	} {
		_, err := ParseDate(s)
		assert.Equal(t, ErrBadDate, err, s)
	}
}
