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
	"fmt"
	"log"
	"time"
)

const (
	CameraShutterDelay = 50 * time.Millisecond
	CameraPowerUpDelay = 15 * time.Second
)

// CameraPins names the GPIO pins wired to the camera relays.
type CameraPins struct {
	Shutter          string `yaml:"shutter"`
	Power            string `yaml:"power"`
	IntensifierSet   string `yaml:"intensifier-set"`
	IntensifierUnset string `yaml:"intensifier-unset"`
}

// Camera drives the camera and image intensifier. The camera power relay
// toggles on each pulse and there is no readback, so the software state
// can drift from the real one; a forced power change pulses regardless.
type Camera struct {
	powerUsage
	shutter          outputPin
	power            outputPin
	intensifierSet   outputPin
	intensifierUnset outputPin
	sleep            func(time.Duration)
	powerOn          bool
}

// NewCamera opens the camera pins and makes sure the intensifier is off.
func NewCamera(pins CameraPins) (*Camera, error) {
	shutter, err := openOutput(pins.Shutter)
	if err != nil {
		return nil, err
	}
	power, err := openOutput(pins.Power)
	if err != nil {
		return nil, err
	}
	set, err := openOutput(pins.IntensifierSet)
	if err != nil {
		return nil, err
	}
	unset, err := openOutput(pins.IntensifierUnset)
	if err != nil {
		return nil, err
	}
	c := newCamera(shutter, power, set, unset)
	if err := pulse(c.intensifierUnset, c.sleep); err != nil {
		return nil, fmt.Errorf("failed to reset intensifier: %v", err)
	}
	return c, nil
}

func newCamera(shutter, power, set, unset outputPin) *Camera {
	return &Camera{
		powerUsage:       powerUsage{nowFunc: time.Now},
		shutter:          shutter,
		power:            power,
		intensifierSet:   set,
		intensifierUnset: unset,
		sleep:            time.Sleep,
	}
}

func (c *Camera) IsPowerOn() bool {
	return c.powerOn
}

// SetPower turns the camera and intensifier on or off. Powering on waits
// for the camera to start up. Once the power relay has switched the
// camera is taken to be in the new state, even if the intensifier relay
// then fails.
func (c *Camera) SetPower(on, force bool) error {
	if !force && c.powerOn == on {
		return nil
	}

	if err := pulse(c.power, c.sleep); err != nil {
		return fmt.Errorf("camera power relay: %v", err)
	}
	c.powerOn = on

	intensifier := c.intensifierUnset
	if on {
		intensifier = c.intensifierSet
	}
	err := pulse(intensifier, c.sleep)
	if on && err == nil {
		log.Print("waiting for camera startup")
		c.sleep(CameraPowerUpDelay)
	}
	if on {
		c.poweredOn()
	} else {
		c.poweredOff()
	}
	if err != nil {
		return fmt.Errorf("intensifier power relay: %v", err)
	}
	return nil
}

// Snap fires the shutter n times. Nothing happens when the camera is off.
func (c *Camera) Snap(n int) error {
	if !c.powerOn {
		return nil
	}
	for i := 0; i < n; i++ {
		if err := pulse(c.shutter, c.sleep); err != nil {
			return fmt.Errorf("camera shutter relay: %v", err)
		}
		c.sleep(CameraShutterDelay)
	}
	return nil
}
