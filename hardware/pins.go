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

// Package hardware drives the PLT peripherals: the camera and laser
// relays, the status lights, the start/stop switch, the clock, the
// battery monitors and the sensors.
package hardware

import (
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
)

// RelayDelay is how long a relay coil is driven for one pulse.
const RelayDelay = 10 * time.Millisecond

type outputPin interface {
	Out(l gpio.Level) error
}

type inputPin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
}

func openOutput(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to set pin %s low: %v", name, err)
	}
	return pin, nil
}

func openInput(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to set pin %s as input: %v", name, err)
	}
	return pin, nil
}

// pulse drives a pin high for RelayDelay.
func pulse(pin outputPin, sleep func(time.Duration)) error {
	if err := pin.Out(gpio.High); err != nil {
		return err
	}
	sleep(RelayDelay)
	return pin.Out(gpio.Low)
}

// powerUsage counts power ons and powered seconds for a peripheral.
type powerUsage struct {
	nowFunc          func() time.Time
	numberOfPowerOns uint32
	uptimeSeconds    uint32
	recentPowerOn    time.Time
}

func (u *powerUsage) poweredOn() {
	u.numberOfPowerOns++
	u.recentPowerOn = u.nowFunc()
}

func (u *powerUsage) poweredOff() {
	if u.recentPowerOn.IsZero() {
		return
	}
	u.uptimeSeconds += uint32(u.nowFunc().Sub(u.recentPowerOn) / time.Second)
	u.recentPowerOn = time.Time{}
}

// PowerOns returns how many times the peripheral has been powered on.
func (u *powerUsage) PowerOns() uint32 {
	return u.numberOfPowerOns
}

// UptimeSeconds returns the powered time including the current session.
func (u *powerUsage) UptimeSeconds() uint32 {
	if u.recentPowerOn.IsZero() {
		return u.uptimeSeconds
	}
	return u.uptimeSeconds + uint32(u.nowFunc().Sub(u.recentPowerOn)/time.Second)
}

// SetUsage restores counters saved from an earlier boot.
func (u *powerUsage) SetUsage(powerOns, uptimeSeconds uint32) {
	u.numberOfPowerOns = powerOns
	u.uptimeSeconds = uptimeSeconds
}
