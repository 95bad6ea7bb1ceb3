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
	"context"
	"errors"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/TheCacophonyProject/plt-controller/console"
	"github.com/TheCacophonyProject/plt-controller/runcontrol"
)

const (
	dbusName = "org.cacophony.pltd"
	dbusPath = "/org/cacophony/pltd"
)

type service struct {
	ctx    context.Context
	runner console.Runner
}

func startService(ctx context.Context, runner console.Runner) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		ctx:    ctx,
		runner: runner,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// do runs fn on the control loop and turns a failure into a D-Bus error.
func (s *service) do(name string, fn func(c *runcontrol.Controller) error) *dbus.Error {
	var err error
	if derr := s.runner.Do(s.ctx, func(c *runcontrol.Controller) { err = fn(c) }); derr != nil {
		return makeDbusError(name, derr)
	}
	if err != nil {
		return makeDbusError(name, err)
	}
	return nil
}

func (s *service) Start() *dbus.Error {
	return s.do("Start", func(c *runcontrol.Controller) error {
		return c.Start()
	})
}

func (s *service) Stop() (string, uint32, *dbus.Error) {
	var name string
	var entries uint32
	derr := s.do("Stop", func(c *runcontrol.Controller) error {
		if err := c.Stop(); err != nil {
			return err
		}
		name = c.Storage().DataLogName()
		entries = c.Storage().DataLogEntries()
		return nil
	})
	return name, entries, derr
}

func (s *service) Snap(n int32) *dbus.Error {
	return s.do("Snap", func(c *runcontrol.Controller) error {
		return c.Snap(int(n))
	})
}

func (s *service) Status() (string, *dbus.Error) {
	var report string
	derr := s.do("Status", func(c *runcontrol.Controller) error {
		report = console.StatusReport(c)
		return nil
	})
	return report, derr
}

func (s *service) Lights() (string, *dbus.Error) {
	var lights string
	derr := s.do("Lights", func(c *runcontrol.Controller) error {
		lights = c.Status().LightString()
		return nil
	})
	return lights, derr
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + "." + name,
		Body: []interface{}{err.Error()},
	}
}
