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
	"fmt"
	"log"

	"periph.io/x/periph/conn/i2c"
)

const (
	muxAddr                  = 0x70
	lc709203fAddr            = 0x0B
	MuxControllerBattery     = 2
	MuxMainBattery           = 4
	ControllerBatteryMonitor = "LC709203F controller battery monitor"
	MainBatteryMonitor       = "LC709203F main battery monitor"
)

// LC709203F registers.
const (
	regInitRSOC    = 0x07
	regCellVoltage = 0x09
	regAPA         = 0x0B
	regRSOC        = 0x0D
	regICVersion   = 0x11
	regAlarmVolts  = 0x14
	regPowerMode   = 0x15
	regTempMode    = 0x16

	powerModeOperate = 0x0001
	tempModeI2C      = 0x0000
	apa2000mAh       = 0x2D
	apa3000mAh       = 0x36
)

var errBadCRC = errors.New("battery monitor CRC mismatch")

// i2cMux is a TCA9548A I2C multiplexer. The selected channel is cached so
// repeated reads of one monitor don't rewrite it.
type i2cMux struct {
	dev     *i2c.Dev
	current int
}

func newMux(bus i2c.Bus) *i2cMux {
	return &i2cMux{dev: &i2c.Dev{Bus: bus, Addr: muxAddr}, current: -1}
}

func (m *i2cMux) selectChannel(ch int) error {
	if m.current == ch {
		return nil
	}
	if err := m.dev.Tx([]byte{1 << uint(ch)}, nil); err != nil {
		m.current = -1
		return err
	}
	m.current = ch
	return nil
}

// BatteryMonitor is an LC709203F fuel gauge on one mux channel.
type BatteryMonitor struct {
	name    string
	mux     *i2cMux
	channel int
	dev     *i2c.Dev
	present bool
}

// Batteries holds the controller and main battery monitors.
type Batteries struct {
	Controller *BatteryMonitor
	Main       *BatteryMonitor
}

// NewBatteries initialises both monitors. A monitor that doesn't respond
// is marked as not present rather than failing.
func NewBatteries(bus i2c.Bus) *Batteries {
	mux := newMux(bus)
	b := &Batteries{
		Controller: &BatteryMonitor{
			name:    ControllerBatteryMonitor,
			mux:     mux,
			channel: MuxControllerBattery,
			dev:     &i2c.Dev{Bus: bus, Addr: lc709203fAddr},
		},
		Main: &BatteryMonitor{
			name:    MainBatteryMonitor,
			mux:     mux,
			channel: MuxMainBattery,
			dev:     &i2c.Dev{Bus: bus, Addr: lc709203fAddr},
		},
	}
	b.Controller.init(apa2000mAh)
	b.Main.init(apa3000mAh)
	return b
}

func (b *BatteryMonitor) init(apa uint16) {
	if err := b.mux.selectChannel(b.channel); err != nil {
		log.Printf("%s: failed to select mux channel: %v", b.name, err)
		return
	}
	if _, err := b.readRegister(regICVersion); err != nil {
		log.Printf("%s not found: %v", b.name, err)
		return
	}
	writes := []struct {
		reg   byte
		value uint16
	}{
		{regPowerMode, powerModeOperate},
		{regAPA, apa},
		{regInitRSOC, 0xAA55},
		{regAlarmVolts, 0},
		{regTempMode, tempModeI2C},
	}
	for _, w := range writes {
		if err := b.writeRegister(w.reg, w.value); err != nil {
			log.Printf("%s: failed to configure register 0x%02X: %v", b.name, w.reg, err)
			return
		}
	}
	b.present = true
}

func (b *BatteryMonitor) Name() string {
	return b.name
}

func (b *BatteryMonitor) Present() bool {
	return b != nil && b.present
}

// Voltage returns the cell voltage in volts.
func (b *BatteryMonitor) Voltage() (float64, error) {
	v, err := b.read(regCellVoltage)
	if err != nil {
		return 0, err
	}
	return float64(v) / 1000, nil
}

// Percent returns the remaining charge.
func (b *BatteryMonitor) Percent() (float64, error) {
	v, err := b.read(regRSOC)
	if err != nil {
		return 0, err
	}
	return float64(v) / 10, nil
}

func (b *BatteryMonitor) read(reg byte) (uint16, error) {
	if !b.Present() {
		return 0, fmt.Errorf("%s not present", b.name)
	}
	if err := b.mux.selectChannel(b.channel); err != nil {
		return 0, err
	}
	v, err := b.readRegister(reg)
	if err != nil {
		return 0, fmt.Errorf("%s: read of register 0x%02X failed: %v", b.name, reg, err)
	}
	return v, nil
}

func (b *BatteryMonitor) readRegister(reg byte) (uint16, error) {
	r := make([]byte, 3)
	if err := b.dev.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	addr := byte(b.dev.Addr << 1)
	if crc8([]byte{addr, reg, addr | 1, r[0], r[1]}) != r[2] {
		return 0, errBadCRC
	}
	return uint16(r[0]) | uint16(r[1])<<8, nil
}

func (b *BatteryMonitor) writeRegister(reg byte, value uint16) error {
	lo, hi := byte(value), byte(value>>8)
	addr := byte(b.dev.Addr << 1)
	crc := crc8([]byte{addr, reg, lo, hi})
	return b.dev.Tx([]byte{reg, lo, hi, crc}, nil)
}

// crc8 is the CRC-8-ATM checksum used by the LC709203F.
func crc8(data []byte) byte {
	var crc byte
	for _, d := range data {
		crc ^= d
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
