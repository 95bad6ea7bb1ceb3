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
	"fmt"
	"log"

	arg "github.com/alexflint/go-arg"

	"github.com/TheCacophonyProject/plt-controller/pltdclient"
)

var version = "<not set>"

type StartCmd struct{}

type StopCmd struct{}

type SnapCmd struct {
	Count int32 `arg:"positional" help:"number of images to shoot"`
}

type StatusCmd struct {
	Lights bool `arg:"-l,--lights" help:"only show the status lights"`
}

type Args struct {
	Start  *StartCmd  `arg:"subcommand:start" help:"start a run"`
	Stop   *StopCmd   `arg:"subcommand:stop" help:"stop the run"`
	Snap   *SnapCmd   `arg:"subcommand:snap" help:"shoot images outside of a run"`
	Status *StatusCmd `arg:"subcommand:status" help:"show the device status"`
}

func (Args) Version() string {
	return version
}

func procArgs() (Args, *arg.Parser) {
	var args Args
	p := arg.MustParse(&args)
	return args, p
}

func main() {
	log.SetFlags(0)
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args, p := procArgs()
	switch {
	case args.Start != nil:
		if err := pltdclient.Start(); err != nil {
			return err
		}
		fmt.Println("running")
	case args.Stop != nil:
		name, entries, err := pltdclient.Stop()
		if err != nil {
			return err
		}
		fmt.Printf("stopped, %d entries logged to %s\n", entries, name)
	case args.Snap != nil:
		n := args.Snap.Count
		if n < 1 {
			n = 1
		}
		if err := pltdclient.Snap(n); err != nil {
			return err
		}
		fmt.Printf("%d images shot\n", n)
	case args.Status != nil:
		return printStatus(args.Status.Lights)
	default:
		p.WriteHelp(log.Writer())
		return errors.New("no command given")
	}
	return nil
}

func printStatus(lightsOnly bool) error {
	lights, err := pltdclient.Lights()
	if err != nil {
		return err
	}
	if lightsOnly {
		fmt.Println(lights)
		return nil
	}
	report, err := pltdclient.Status()
	if err != nil {
		return err
	}
	fmt.Printf("lights: %s\n%s", lights, report)
	return nil
}
