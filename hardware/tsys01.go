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
	"math"
	"time"

	"periph.io/x/periph/conn/i2c"
)

const (
	tsys01Addr      = 0x77
	tsys01Reset     = 0x1E
	tsys01Convert   = 0x48
	tsys01ADCRead   = 0x00
	tsys01PROMk4    = 0xA2
	tsys01ConvDelay = 10 * time.Millisecond

	// BadWaterTemperature is absolute zero, reported when the sensor
	// gives nothing sensible.
	BadWaterTemperature = -274.0
)

// TSYS01 is a high precision water temperature sensor.
type TSYS01 struct {
	dev   *i2c.Dev
	sleep func(time.Duration)
	k     [5]uint16
}

func newTSYS01(bus i2c.Bus, sleep func(time.Duration)) (*TSYS01, error) {
	s := &TSYS01{
		dev:   &i2c.Dev{Bus: bus, Addr: tsys01Addr},
		sleep: sleep,
	}
	if err := s.dev.Tx([]byte{tsys01Reset}, nil); err != nil {
		return nil, err
	}
	s.sleep(tsys01ConvDelay)
	// Coefficients k4 to k0 are at consecutive PROM words.
	for i := 0; i < 5; i++ {
		v, err := readUint16BE(s.dev, byte(tsys01PROMk4+2*i))
		if err != nil {
			return nil, err
		}
		s.k[4-i] = v
	}
	return s, nil
}

// Read returns the water temperature in Celsius, or BadWaterTemperature.
func (s *TSYS01) Read() float64 {
	if err := s.dev.Tx([]byte{tsys01Convert}, nil); err != nil {
		return BadWaterTemperature
	}
	s.sleep(tsys01ConvDelay)
	adc, err := readUint24BE(s.dev, tsys01ADCRead)
	if err != nil {
		return BadWaterTemperature
	}
	return tsys01Temperature(s.k, adc)
}

func tsys01Temperature(k [5]uint16, adc uint32) float64 {
	a := float64(adc / 256)
	t := -2*float64(k[4])*1e-21*math.Pow(a, 4) +
		4*float64(k[3])*1e-16*math.Pow(a, 3) -
		2*float64(k[2])*1e-11*math.Pow(a, 2) +
		1*float64(k[1])*1e-6*a -
		1.5*float64(k[0])*1e-2
	if math.IsNaN(t) || t <= BadWaterTemperature || t > 150 {
		return BadWaterTemperature
	}
	return t
}
