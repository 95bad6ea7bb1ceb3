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

import "fmt"

// MaxBrightness is the brightest value used for a light channel.
const MaxBrightness = 10

// Light indexes into Lights.
const (
	HardwareLight = 0
	SoftwareLight = 1
	CameraLight   = 2

	NumberOfLights = 3
)

// Colour is an RGB triple in the range 0..MaxBrightness.
type Colour struct {
	R, G, B uint8
}

var (
	Black  = Colour{}
	Red    = Colour{R: MaxBrightness}
	Green  = Colour{G: MaxBrightness}
	Blue   = Colour{B: MaxBrightness}
	Yellow = Colour{R: MaxBrightness / 2, G: MaxBrightness / 2}
	White  = Colour{R: MaxBrightness, G: MaxBrightness, B: MaxBrightness}
)

// Name returns the name shown in the light string.
func (c Colour) Name() string {
	switch c {
	case Black:
		return "---"
	case Red:
		return "Red"
	case Green:
		return "Green"
	case Blue:
		return "Blue"
	case Yellow:
		return "Yellow"
	case White:
		return "White"
	}
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// Lights holds the colour of each status light.
type Lights [NumberOfLights]Colour

func (l Lights) String() string {
	return fmt.Sprintf("H/W (%s)  S/W (%s)  Camera (%s)",
		l[HardwareLight].Name(),
		l[SoftwareLight].Name(),
		l[CameraLight].Name())
}

// LightsFor computes the lights for a status triple.
func LightsFor(h Hardware, s Software, c Camera) Lights {
	var l Lights

	switch h {
	case HardwareBooting:
		l[HardwareLight] = Blue
	case HardwareErrors:
		l[HardwareLight] = Red
	case HardwareWarnings:
		l[HardwareLight] = Yellow
	case HardwareReady:
		l[HardwareLight] = Green
	}

	switch s {
	case SoftwareBooting:
		l[SoftwareLight] = Blue
	case SoftwareErrors:
		l[SoftwareLight] = Red
	case SoftwareReady, SoftwareRunning:
		l[SoftwareLight] = Green
	}

	switch c {
	case CameraBooting:
		l[CameraLight] = Blue
	case CameraReady:
		l[CameraLight] = Green
	case CameraShooting:
		l[CameraLight] = White
	}
	return l
}
