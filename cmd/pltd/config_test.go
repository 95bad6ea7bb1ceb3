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

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/plt-controller/hardware"
)

func TestDefaultConfig(t *testing.T) {
	conf, err := ParseConfig([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, defaultConfig, *conf)
	assert.Equal(t, "/dev/mmcblk1p1", conf.Storage.Device)
	assert.Equal(t, hardware.SaltWaterDensity, conf.WaterDensity)
	assert.Equal(t, 50*time.Millisecond, conf.Control.PollInterval)
	assert.True(t, conf.Events.Enabled)
}

func TestAllSet(t *testing.T) {
	config := []byte(`
storage:
  dir: /tmp/card
camera:
  shutter: "PIN1"
  power: "PIN2"
  intensifier-set: "PIN3"
  intensifier-unset: "PIN4"
laser-pin: "PIN5"
switch-pin: ""
lights:
  spi-port: "/dev/spidev1.0"
  board-red: "PIN6"
  board-green: "PIN7"
i2c-bus: "1"
rtc-device: ""
water-density: 997
serial:
  port: "/dev/ttyUSB0"
  baud-rate: 9600
  echo: false
control:
  poll-interval: 20ms
  battery-check-interval: 30s
  battery-columns: false
  usage-flush-events: 10
  auto-run: true
  warnings-only: true
events:
  enabled: false
  bucket-size: 5
  min-refill: 10m
`)

	conf, err := ParseConfig(config)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/card", conf.Storage.Dir)
	assert.Equal(t, hardware.CameraPins{
		Shutter:          "PIN1",
		Power:            "PIN2",
		IntensifierSet:   "PIN3",
		IntensifierUnset: "PIN4",
	}, conf.Camera)
	assert.Equal(t, "PIN5", conf.LaserPin)
	assert.Equal(t, "", conf.SwitchPin)
	assert.Equal(t, hardware.LightsConfig{
		SPIPort:    "/dev/spidev1.0",
		BoardRed:   "PIN6",
		BoardGreen: "PIN7",
	}, conf.Lights)
	assert.Equal(t, "1", conf.I2CBus)
	assert.Equal(t, "", conf.RTCDevice)
	assert.Equal(t, hardware.FreshWaterDensity, conf.WaterDensity)
	assert.Equal(t, SerialConfig{Port: "/dev/ttyUSB0", BaudRate: 9600}, conf.Serial)

	assert.Equal(t, 20*time.Millisecond, conf.Control.PollInterval)
	assert.Equal(t, 30*time.Second, conf.Control.BatteryCheckInterval)
	assert.False(t, conf.Control.BatteryColumns)
	assert.Equal(t, 10, conf.Control.UsageFlushEvents)
	assert.True(t, conf.Control.AutoRun)
	assert.True(t, conf.Control.WarningsOnly)

	assert.False(t, conf.Events.Enabled)
	assert.EqualValues(t, 5, conf.Events.BucketSize)
	assert.Equal(t, 10*time.Minute, conf.Events.MinRefill)
}

func TestInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"no storage":    "storage: {device: '', dir: ''}",
		"density":       "water-density: 0",
		"baud rate":     "serial: {port: /dev/ttyS1, baud-rate: 0}",
		"poll interval": "control: {poll-interval: 0s}",
		"battery check": "control: {poll-interval: 1s, battery-check-interval: 10ms}",
		"usage flush":   "control: {usage-flush-events: 0}",
		"min refill":    "events: {min-refill: 0s}",
		"neg refill":    "events: {enabled: false, min-refill: -1m}",
	}
	for name, config := range cases {
		_, err := ParseConfig([]byte(config))
		assert.Error(t, err, name)
	}
}

func TestSerialDisabled(t *testing.T) {
	conf, err := ParseConfig([]byte("serial: {port: '', baud-rate: 0}"))
	require.NoError(t, err)
	assert.Equal(t, "", conf.Serial.Port)
}
