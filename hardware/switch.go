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
	"time"

	"periph.io/x/periph/conn/gpio"
)

const SwitchDebouncePeriod = 50 * time.Millisecond

// Switch is the start/stop push button. The input is pulled up so the
// switch reads High when released.
type Switch struct {
	pin     inputPin
	nowFunc func() time.Time

	lastChange time.Time
	flickering gpio.Level
	steady     gpio.Level
	pressCount int
}

func NewSwitch(pinName string) (*Switch, error) {
	pin, err := openInput(pinName)
	if err != nil {
		return nil, err
	}
	return newSwitch(pin, time.Now), nil
}

func newSwitch(pin inputPin, nowFunc func() time.Time) *Switch {
	level := pin.Read()
	return &Switch{
		pin:        pin,
		nowFunc:    nowFunc,
		flickering: level,
		steady:     level,
	}
}

// Update samples the switch. It needs calling more often than the
// debounce period to catch presses.
func (s *Switch) Update() {
	now := s.nowFunc()
	level := s.pin.Read()
	if level != s.flickering {
		s.lastChange = now
		s.flickering = level
	}
	if now.Sub(s.lastChange) < SwitchDebouncePeriod {
		return
	}
	if level != s.steady {
		s.steady = level
		if level == gpio.High {
			s.pressCount++
		}
	}
}

// Pressed reports whether the switch was released since the last call.
func (s *Switch) Pressed() bool {
	if s.pressCount > 0 {
		s.pressCount = 0
		return true
	}
	return false
}
