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

const LaserWarmupDelay = 50 * time.Millisecond

// Laser drives the laser power relay.
type Laser struct {
	powerUsage
	pin     outputPin
	sleep   func(time.Duration)
	powerOn bool
}

func NewLaser(pinName string) (*Laser, error) {
	pin, err := openOutput(pinName)
	if err != nil {
		return nil, err
	}
	return newLaser(pin), nil
}

func newLaser(pin outputPin) *Laser {
	return &Laser{
		powerUsage: powerUsage{nowFunc: time.Now},
		pin:        pin,
		sleep:      time.Sleep,
	}
}

func (l *Laser) IsPowerOn() bool {
	return l.powerOn
}

// SetPower turns the laser on or off, waiting for it to warm up when
// turned on.
func (l *Laser) SetPower(on bool) error {
	if l.powerOn == on {
		return nil
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := l.pin.Out(level); err != nil {
		return err
	}
	if on {
		l.sleep(LaserWarmupDelay)
	}

	l.powerOn = on
	if on {
		l.poweredOn()
	} else {
		l.poweredOff()
	}
	return nil
}

// TestCycle flashes the laser three times, leaving it off.
func (l *Laser) TestCycle() error {
	for i := 3; i > 0; i-- {
		if err := l.SetPower(true); err != nil {
			return err
		}
		l.sleep(LaserWarmupDelay)
		if err := l.SetPower(false); err != nil {
			return err
		}
		if i != 1 {
			l.sleep(LaserWarmupDelay)
		}
	}
	return nil
}
