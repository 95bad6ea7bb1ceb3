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

// Package pltdclient calls the pltd service over D-Bus.
package pltdclient

import "github.com/godbus/dbus"

const (
	dbusPath   = "/org/cacophony/pltd"
	dbusDest   = "org.cacophony.pltd"
	methodBase = "org.cacophony.pltd"
)

func getDbusObj() (dbus.BusObject, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	obj := conn.Object(dbusDest, dbusPath)
	return obj, nil
}

// Start starts a run.
func Start() error {
	obj, err := getDbusObj()
	if err != nil {
		return err
	}
	return obj.Call(methodBase+".Start", 0).Store()
}

// Stop stops the run. It returns the data log name and the number of
// entries logged to it.
func Stop() (string, uint32, error) {
	obj, err := getDbusObj()
	if err != nil {
		return "", 0, err
	}
	var name string
	var entries uint32
	err = obj.Call(methodBase+".Stop", 0).Store(&name, &entries)
	return name, entries, err
}

// Snap shoots a burst of n images outside of a run.
func Snap(n int32) error {
	obj, err := getDbusObj()
	if err != nil {
		return err
	}
	return obj.Call(methodBase+".Snap", 0, n).Store()
}

// Status returns the operator status report.
func Status() (string, error) {
	return callString("Status")
}

// Lights returns the status lights as a string such as "GGB".
func Lights() (string, error) {
	return callString("Lights")
}

func callString(method string) (string, error) {
	obj, err := getDbusObj()
	if err != nil {
		return "", err
	}
	var s string
	err = obj.Call(methodBase+"."+method, 0).Store(&s)
	return s, err
}
