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

// Package deployment reads where the device is deployed and when it
// should record from the shared Cacophony device configuration.
package deployment

import (
	"errors"

	goconfig "github.com/TheCacophonyProject/go-config"
	"github.com/TheCacophonyProject/window"
)

const (
	maxLatitude  = 90
	maxLongitude = 180
)

type Config struct {
	DeviceID   int
	DeviceName string
	Latitude   float32
	Longitude  float32
	Window     *window.Window
}

// NewConfig loads the deployment from the config directory, usually
// goconfig.DefaultConfigDir.
func NewConfig(configDir string) (*Config, error) {
	conf, err := goconfig.New(configDir)
	if err != nil {
		return nil, err
	}

	var device goconfig.Device
	if err := conf.Unmarshal(goconfig.DeviceKey, &device); err != nil {
		return nil, err
	}
	location := goconfig.DefaultWindowLocation()
	if err := conf.Unmarshal(goconfig.LocationKey, &location); err != nil {
		return nil, err
	}
	windows := goconfig.DefaultWindows()
	if err := conf.Unmarshal(goconfig.WindowsKey, &windows); err != nil {
		return nil, err
	}

	return build(device, location, windows)
}

func build(device goconfig.Device, location goconfig.Location, windows goconfig.Windows) (*Config, error) {
	w, err := window.New(
		windows.StartRecording,
		windows.StopRecording,
		float64(location.Latitude),
		float64(location.Longitude))
	if err != nil {
		return nil, err
	}

	deployment := &Config{
		DeviceID:   device.ID,
		DeviceName: device.Name,
		Latitude:   location.Latitude,
		Longitude:  location.Longitude,
		Window:     w,
	}
	if err := deployment.validate(); err != nil {
		return nil, err
	}
	return deployment, nil
}

func (conf *Config) validate() error {
	if conf.Latitude < -maxLatitude || conf.Latitude > maxLatitude {
		return errors.New("latitude outside of normal range")
	}
	if conf.Longitude < -maxLongitude || conf.Longitude > maxLongitude {
		return errors.New("longitude outside of normal range")
	}
	return nil
}

// HasWindow reports whether a recording window is configured.
func (conf *Config) HasWindow() bool {
	return conf.Window != nil && !conf.Window.NoWindow
}

// Details returns the device fields attached to events.
func (conf *Config) Details() map[string]interface{} {
	return map[string]interface{}{
		"deviceID":   conf.DeviceID,
		"deviceName": conf.DeviceName,
	}
}
