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

// Package status holds the hardware, software and camera status of the
// device and derives the status lights from them.
package status

import "log"

type Hardware int

const (
	HardwareOff Hardware = iota
	HardwareBooting
	HardwareErrors
	HardwareWarnings
	HardwareReady
)

func (h Hardware) String() string {
	switch h {
	case HardwareOff:
		return "off"
	case HardwareBooting:
		return "booting"
	case HardwareErrors:
		return "errors"
	case HardwareWarnings:
		return "warnings"
	case HardwareReady:
		return "ready"
	}
	return "unknown"
}

type Software int

const (
	SoftwareOff Software = iota
	SoftwareBooting
	SoftwareErrors
	SoftwareReady
	SoftwareRunning
)

func (s Software) String() string {
	switch s {
	case SoftwareOff:
		return "off"
	case SoftwareBooting:
		return "booting"
	case SoftwareErrors:
		return "errors"
	case SoftwareReady:
		return "ready"
	case SoftwareRunning:
		return "running"
	}
	return "unknown"
}

type Camera int

const (
	CameraOff Camera = iota
	CameraBooting
	CameraReady
	CameraShooting
)

func (c Camera) String() string {
	switch c {
	case CameraOff:
		return "off"
	case CameraBooting:
		return "booting"
	case CameraReady:
		return "ready"
	case CameraShooting:
		return "shooting"
	}
	return "unknown"
}

// Indicator shows the status lights. It is called after every status
// change.
type Indicator interface {
	Show(Lights) error
}

// Status is the status triple. It does not enforce a transition table;
// callers own the transitions.
type Status struct {
	hardware  Hardware
	software  Software
	camera    Camera
	indicator Indicator
}

// New returns a Status with every axis off. The indicator may be nil.
func New(indicator Indicator) *Status {
	return &Status{indicator: indicator}
}

func (s *Status) Hardware() Hardware { return s.hardware }
func (s *Status) Software() Software { return s.software }
func (s *Status) Camera() Camera     { return s.camera }

func (s *Status) SetHardware(h Hardware) {
	s.hardware = h
	s.Refresh()
}

func (s *Status) SetSoftware(sw Software) {
	s.software = sw
	s.Refresh()
}

func (s *Status) SetCamera(c Camera) {
	s.camera = c
	s.Refresh()
}

// Booting reports whether either the hardware or the software is still
// booting.
func (s *Status) Booting() bool {
	return s.hardware == HardwareBooting || s.software == SoftwareBooting
}

// HasErrors reports whether the hardware or the software is in an error
// state.
func (s *Status) HasErrors() bool {
	return s.hardware == HardwareErrors || s.software == SoftwareErrors
}

func (s *Status) Running() bool {
	return s.software == SoftwareRunning
}

// Lights returns the lights for the current status.
func (s *Status) Lights() Lights {
	return LightsFor(s.hardware, s.software, s.camera)
}

// LightString describes the lights, e.g. "H/W (Green)  S/W (Green)  Camera (---)".
func (s *Status) LightString() string {
	return s.Lights().String()
}

// Refresh pushes the current lights to the indicator.
func (s *Status) Refresh() {
	if s.indicator == nil {
		return
	}
	if err := s.indicator.Show(s.Lights()); err != nil {
		log.Printf("failed to update status lights: %v", err)
	}
}
