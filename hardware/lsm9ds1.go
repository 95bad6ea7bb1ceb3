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

	"periph.io/x/periph/conn/i2c"
)

const (
	lsm9ds1AGAddr     = 0x6B
	lsm9ds1MagAddr    = 0x1E
	lsm9ds1WhoAmI     = 0x0F
	lsm9ds1AGID       = 0x68
	lsm9ds1MagID      = 0x3D
	lsm9ds1OutTemp    = 0x15
	lsm9ds1OutGyro    = 0x18
	lsm9ds1OutAccel   = 0x28
	lsm9ds1OutMag     = 0x28
	lsm9ds1MagAutoInc = 0x80

	// Scales for the 2 g, 245 dps and 4 gauss ranges.
	accelGPerLSB     = 0.061e-3
	gyroDPSPerLSB    = 8.75e-3
	magGaussPerLSB   = 0.14e-3
	tempLSBPerDegree = 16.0
	tempOffset       = 25.0
)

// LSM9DS1 is the accelerometer, gyroscope and magnetometer module.
type LSM9DS1 struct {
	ag  *i2c.Dev
	mag *i2c.Dev
}

// Inertia is one reading from the LSM9DS1.
type Inertia struct {
	Acceleration [3]float64 // g
	Magnetic     [3]float64 // gauss
	Gyroscope    [3]float64 // degrees per second
	Temperature  float64    // Celsius
}

func newLSM9DS1(bus i2c.Bus) (*LSM9DS1, error) {
	s := &LSM9DS1{
		ag:  &i2c.Dev{Bus: bus, Addr: lsm9ds1AGAddr},
		mag: &i2c.Dev{Bus: bus, Addr: lsm9ds1MagAddr},
	}
	if err := checkID(s.ag, lsm9ds1AGID); err != nil {
		return nil, err
	}
	if err := checkID(s.mag, lsm9ds1MagID); err != nil {
		return nil, err
	}

	agSetup := [][]byte{
		{0x10, 0xC0}, // CTRL_REG1_G: 952 Hz, 245 dps
		{0x1E, 0x38}, // CTRL_REG4: gyro axes on
		{0x1F, 0x38}, // CTRL_REG5_XL: accel axes on
		{0x20, 0xC0}, // CTRL_REG6_XL: 952 Hz, 2 g
	}
	for _, w := range agSetup {
		if err := s.ag.Tx(w, nil); err != nil {
			return nil, err
		}
	}
	magSetup := [][]byte{
		{0x21, 0x00}, // CTRL_REG2_M: 4 gauss
		{0x22, 0x00}, // CTRL_REG3_M: continuous
	}
	for _, w := range magSetup {
		if err := s.mag.Tx(w, nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func checkID(dev *i2c.Dev, want byte) error {
	r := make([]byte, 1)
	if err := dev.Tx([]byte{lsm9ds1WhoAmI}, r); err != nil {
		return err
	}
	if r[0] != want {
		return fmt.Errorf("unexpected id 0x%02X at address 0x%02X", r[0], dev.Addr)
	}
	return nil
}

func (s *LSM9DS1) Read() (*Inertia, error) {
	in := &Inertia{}
	accel, err := readAxes(s.ag, lsm9ds1OutAccel)
	if err != nil {
		return nil, err
	}
	gyro, err := readAxes(s.ag, lsm9ds1OutGyro)
	if err != nil {
		return nil, err
	}
	mag, err := readAxes(s.mag, lsm9ds1OutMag|lsm9ds1MagAutoInc)
	if err != nil {
		return nil, err
	}
	r := make([]byte, 2)
	if err := s.ag.Tx([]byte{lsm9ds1OutTemp}, r); err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		in.Acceleration[i] = float64(accel[i]) * accelGPerLSB
		in.Gyroscope[i] = float64(gyro[i]) * gyroDPSPerLSB
		in.Magnetic[i] = float64(mag[i]) * magGaussPerLSB
	}
	in.Temperature = tempOffset + float64(int16(uint16(r[0])|uint16(r[1])<<8))/tempLSBPerDegree
	return in, nil
}

func readAxes(dev *i2c.Dev, reg byte) ([3]int16, error) {
	var axes [3]int16
	r := make([]byte, 6)
	if err := dev.Tx([]byte{reg}, r); err != nil {
		return axes, err
	}
	for i := range axes {
		axes[i] = int16(uint16(r[2*i]) | uint16(r[2*i+1])<<8)
	}
	return axes, nil
}
