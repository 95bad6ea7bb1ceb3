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
	"time"

	"periph.io/x/periph/conn/i2c"
)

const (
	ms5837Addr       = 0x76
	ms5837Reset      = 0x1E
	ms5837ADCRead    = 0x00
	ms5837PROMRead   = 0xA0
	ms5837ConvertD1  = 0x48
	ms5837ConvertD2  = 0x58
	ms5837ConvDelay  = 10 * time.Millisecond
	ms5837ResetDelay = 10 * time.Millisecond

	// Fresh and sea water densities in kg/m^3.
	FreshWaterDensity = 997.0
	SaltWaterDensity  = 1029.0

	standardGravity    = 9.80665
	atmosphericPascals = 101300
)

var errPROMCRC = errors.New("PROM CRC mismatch")

// MS5837 is a 30 bar pressure sensor.
type MS5837 struct {
	dev     *i2c.Dev
	sleep   func(time.Duration)
	density float64
	prom    [8]uint16
}

func newMS5837(bus i2c.Bus, density float64, sleep func(time.Duration)) (*MS5837, error) {
	s := &MS5837{
		dev:     &i2c.Dev{Bus: bus, Addr: ms5837Addr},
		sleep:   sleep,
		density: density,
	}
	if err := s.dev.Tx([]byte{ms5837Reset}, nil); err != nil {
		return nil, err
	}
	s.sleep(ms5837ResetDelay)
	for i := 0; i < 7; i++ {
		v, err := readUint16BE(s.dev, byte(ms5837PROMRead+2*i))
		if err != nil {
			return nil, err
		}
		s.prom[i] = v
	}
	if byte(s.prom[0]>>12) != ms5837CRC4(s.prom) {
		return nil, errPROMCRC
	}
	return s, nil
}

// Read returns the pressure in mbar and the depth in metres.
func (s *MS5837) Read() (pressure, depth float64, err error) {
	d1, err := s.convert(ms5837ConvertD1)
	if err != nil {
		return 0, 0, err
	}
	d2, err := s.convert(ms5837ConvertD2)
	if err != nil {
		return 0, 0, err
	}
	pressure, _ = ms5837Compensate(s.prom, d1, d2)
	return pressure, depthFor(pressure, s.density), nil
}

func (s *MS5837) convert(cmd byte) (uint32, error) {
	if err := s.dev.Tx([]byte{cmd}, nil); err != nil {
		return 0, err
	}
	s.sleep(ms5837ConvDelay)
	return readUint24BE(s.dev, ms5837ADCRead)
}

func depthFor(mbar, density float64) float64 {
	return (mbar*100 - atmosphericPascals) / (density * standardGravity)
}

// ms5837Compensate applies the first and second order temperature
// compensation. It returns the pressure in mbar and the temperature in
// Celsius.
func ms5837Compensate(c [8]uint16, d1, d2 uint32) (float64, float64) {
	dT := int64(d2) - int64(c[5])*256
	sens := int64(c[1])*32768 + (int64(c[3])*dT)/256
	off := int64(c[2])*65536 + (int64(c[4])*dT)/128
	temp := 2000 + dT*int64(c[6])/8388608

	var ti, offi, sensi int64
	if temp/100 < 20 {
		ti = 3 * dT * dT / 8589934592
		offi = 3 * (temp - 2000) * (temp - 2000) / 2
		sensi = 5 * (temp - 2000) * (temp - 2000) / 8
		if temp/100 < -15 {
			offi += 7 * (temp + 1500) * (temp + 1500)
			sensi += 4 * (temp + 1500) * (temp + 1500)
		}
	} else {
		ti = 2 * dT * dT / 137438953472
		offi = (temp - 2000) * (temp - 2000) / 16
	}
	off -= offi
	sens -= sensi
	temp -= ti

	p := (int64(d1)*sens/2097152 - off) / 8192
	return float64(p) / 10, float64(temp) / 100
}

func ms5837CRC4(prom [8]uint16) byte {
	prom[0] &= 0x0FFF
	prom[7] = 0
	var rem uint16
	for i := 0; i < 16; i++ {
		if i%2 == 1 {
			rem ^= prom[i>>1] & 0x00FF
		} else {
			rem ^= prom[i>>1] >> 8
		}
		for bit := 8; bit > 0; bit-- {
			if rem&0x8000 != 0 {
				rem = rem<<1 ^ 0x3000
			} else {
				rem <<= 1
			}
		}
	}
	return byte((rem >> 12) & 0x000F)
}

func readUint16BE(dev *i2c.Dev, reg byte) (uint16, error) {
	r := make([]byte, 2)
	if err := dev.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return uint16(r[0])<<8 | uint16(r[1]), nil
}

func readUint24BE(dev *i2c.Dev, reg byte) (uint32, error) {
	r := make([]byte, 3)
	if err := dev.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return uint32(r[0])<<16 | uint32(r[1])<<8 | uint32(r[2]), nil
}
