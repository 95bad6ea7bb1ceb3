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
	"log"
	"time"

	"periph.io/x/periph/conn/i2c"
)

const (
	InertiaSensorName     = "LSM9DS1 inertia module"
	PressureSensorName    = "MS5837 pressure sensor"
	TemperatureSensorName = "TSYS01 temperature sensor"
)

// Readings is one set of sensor values. Values from missing sensors are
// zero.
type Readings struct {
	Pressure          float64
	Depth             float64
	WaterTemperature  float64
	DeviceTemperature float64
	Acceleration      [3]float64
	Magnetic          [3]float64
	Gyroscope         [3]float64
}

// Sensors is the set of environment sensors on the I2C bus.
type Sensors struct {
	inertia     *LSM9DS1
	pressure    *MS5837
	temperature *TSYS01
}

// NewSensors probes each sensor. Sensors that can't be found are logged
// and left out.
func NewSensors(bus i2c.Bus, waterDensity float64) *Sensors {
	return newSensors(bus, waterDensity, time.Sleep)
}

func newSensors(bus i2c.Bus, waterDensity float64, sleep func(time.Duration)) *Sensors {
	s := &Sensors{}
	var err error
	if s.inertia, err = newLSM9DS1(bus); err != nil {
		log.Printf("%s not found: %v", InertiaSensorName, err)
		s.inertia = nil
	}
	if s.pressure, err = newMS5837(bus, waterDensity, sleep); err != nil {
		log.Printf("%s not found: %v", PressureSensorName, err)
		s.pressure = nil
	}
	if s.temperature, err = newTSYS01(bus, sleep); err == nil {
		if s.temperature.Read() <= BadWaterTemperature {
			log.Printf("%s not found: bad reading", TemperatureSensorName)
			s.temperature = nil
		}
	} else {
		log.Printf("%s not found: %v", TemperatureSensorName, err)
		s.temperature = nil
	}
	return s
}

func (s *Sensors) InertiaPresent() bool {
	return s.inertia != nil
}

func (s *Sensors) PressurePresent() bool {
	return s.pressure != nil
}

func (s *Sensors) TemperaturePresent() bool {
	return s.temperature != nil
}

// AllPresent reports whether every sensor was found.
func (s *Sensors) AllPresent() bool {
	return s.InertiaPresent() && s.PressurePresent() && s.TemperaturePresent()
}

// Read reads every present sensor. A failed read leaves its values zero.
func (s *Sensors) Read() Readings {
	var r Readings
	if s.inertia != nil {
		in, err := s.inertia.Read()
		if err != nil {
			log.Printf("failed to read %s: %v", InertiaSensorName, err)
		} else {
			r.Acceleration = in.Acceleration
			r.Magnetic = in.Magnetic
			r.Gyroscope = in.Gyroscope
			r.DeviceTemperature = in.Temperature
		}
	}
	if s.pressure != nil {
		p, d, err := s.pressure.Read()
		if err != nil {
			log.Printf("failed to read %s: %v", PressureSensorName, err)
		} else {
			r.Pressure, r.Depth = p, d
		}
	}
	if s.temperature != nil {
		if t := s.temperature.Read(); t > BadWaterTemperature {
			r.WaterTemperature = t
		}
	}
	return r
}
