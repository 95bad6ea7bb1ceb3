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

package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingIndicator struct {
	shown []Lights
}

func (r *recordingIndicator) Show(l Lights) error {
	r.shown = append(r.shown, l)
	return nil
}

func TestNewIsAllOff(t *testing.T) {
	s := New(nil)
	assert.Equal(t, HardwareOff, s.Hardware())
	assert.Equal(t, SoftwareOff, s.Software())
	assert.Equal(t, CameraOff, s.Camera())
	assert.Equal(t, "H/W (---)  S/W (---)  Camera (---)", s.LightString())
}

func TestEverySetRefreshesLights(t *testing.T) {
	ind := new(recordingIndicator)
	s := New(ind)

	s.SetHardware(HardwareReady)
	s.SetHardware(HardwareReady)
	s.SetSoftware(SoftwareReady)
	s.SetCamera(CameraOff)

	assert.Len(t, ind.shown, 4)
	assert.Equal(t, ind.shown[0], ind.shown[1])
	assert.Equal(t, Green, ind.shown[3][HardwareLight])
	assert.Equal(t, Green, ind.shown[3][SoftwareLight])
	assert.Equal(t, Black, ind.shown[3][CameraLight])
}

func TestLightColours(t *testing.T) {
	cases := []struct {
		h    Hardware
		s    Software
		c    Camera
		want string
	}{
		{HardwareBooting, SoftwareBooting, CameraBooting, "H/W (Blue)  S/W (Blue)  Camera (Blue)"},
		{HardwareErrors, SoftwareErrors, CameraOff, "H/W (Red)  S/W (Red)  Camera (---)"},
		{HardwareWarnings, SoftwareReady, CameraReady, "H/W (Yellow)  S/W (Green)  Camera (Green)"},
		{HardwareReady, SoftwareRunning, CameraShooting, "H/W (Green)  S/W (Green)  Camera (White)"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, LightsFor(c.h, c.s, c.c).String())
	}
}

func TestYellowIsHalfRedHalfGreen(t *testing.T) {
	assert.Equal(t, Colour{R: 5, G: 5, B: 0}, Yellow)
}

func TestBootingAndErrors(t *testing.T) {
	s := New(nil)
	s.SetHardware(HardwareBooting)
	assert.True(t, s.Booting())
	assert.False(t, s.HasErrors())

	s.SetHardware(HardwareReady)
	s.SetSoftware(SoftwareErrors)
	assert.False(t, s.Booting())
	assert.True(t, s.HasErrors())
}
