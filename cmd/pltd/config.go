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
	"errors"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/plt-controller/events"
	"github.com/TheCacophonyProject/plt-controller/hardware"
	"github.com/TheCacophonyProject/plt-controller/runcontrol"
)

type Config struct {
	Storage      StorageConfig         `yaml:"storage"`
	Camera       hardware.CameraPins   `yaml:"camera"`
	LaserPin     string                `yaml:"laser-pin"`
	SwitchPin    string                `yaml:"switch-pin"`
	Lights       hardware.LightsConfig `yaml:"lights"`
	I2CBus       string                `yaml:"i2c-bus"`
	RTCDevice    string                `yaml:"rtc-device"`
	WaterDensity float64               `yaml:"water-density"`
	Serial       SerialConfig          `yaml:"serial"`
	Control      runcontrol.Config     `yaml:"control"`
	Events       events.Config         `yaml:"events"`
}

// StorageConfig selects the card. When Dir is set a plain directory is
// used instead of the block device, for running on a bench.
type StorageConfig struct {
	Device     string `yaml:"device"`
	MountPoint string `yaml:"mount-point"`
	FSType     string `yaml:"fs-type"`
	Dir        string `yaml:"dir"`
}

// SerialConfig is the operator console port. An empty port disables it.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud-rate"`
	Echo     bool   `yaml:"echo"`
}

func (conf *Config) Validate() error {
	if conf.Storage.Dir == "" && (conf.Storage.Device == "" || conf.Storage.MountPoint == "") {
		return errors.New("storage needs either dir or device and mount-point")
	}
	if conf.WaterDensity <= 0 {
		return errors.New("water-density should be positive")
	}
	if conf.Serial.Port != "" && conf.Serial.BaudRate <= 0 {
		return errors.New("serial baud-rate should be positive")
	}
	if conf.Control.PollInterval <= 0 {
		return errors.New("poll-interval should be positive")
	}
	if conf.Control.BatteryCheckInterval < conf.Control.PollInterval {
		return errors.New("battery-check-interval should not be shorter than poll-interval")
	}
	if conf.Control.UsageFlushEvents < 1 {
		return errors.New("usage-flush-events should be at least 1")
	}
	if conf.Events.MinRefill <= 0 {
		return errors.New("events min-refill should be positive")
	}
	return nil
}

var defaultConfig = Config{
	Storage: StorageConfig{
		Device:     "/dev/mmcblk1p1",
		MountPoint: "/media/plt",
		FSType:     "vfat",
	},
	Camera: hardware.CameraPins{
		Shutter:          "GPIO17",
		Power:            "GPIO27",
		IntensifierSet:   "GPIO22",
		IntensifierUnset: "GPIO23",
	},
	LaserPin:  "GPIO24",
	SwitchPin: "GPIO25",
	Lights: hardware.LightsConfig{
		SPIPort: "/dev/spidev0.0",
	},
	RTCDevice:    "/dev/rtc0",
	WaterDensity: hardware.SaltWaterDensity,
	Serial: SerialConfig{
		Port:     "/dev/ttyS0",
		BaudRate: 115200,
		Echo:     true,
	},
	Control: runcontrol.DefaultConfig(),
	Events:  events.DefaultConfig(),
}

func ParseConfigFile(filename string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(buf)
}

func ParseConfig(buf []byte) (*Config, error) {
	conf := defaultConfig
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}
