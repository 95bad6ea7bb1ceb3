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

package console

import (
	"github.com/TheCacophonyProject/plt-controller/runcontrol"
)

var helpColumns = [4][]string{
	{"Info:", "  help [COMMAND]", "  hwinfo", "  sensors", "  status", "  version", "", ""},
	{"Settings:", "  burstsize [N]", "  date [DT]", "  interval [N]", "  lasermode [MODE]", "", "", ""},
	{"Actions:", "  camera [STATE]", "  laser [STATE]", "  reset", "  snap [N]", "  start", "  stop", "  test NAME"},
	{"Files:", "  cat PATH", "  du [PATH]", "  format", "  head PATH", "  ls [PATH]", "  rm PATH", "  tail PATH"},
}

var usage = map[string][]string{
	"help": {
		"Usage: help [COMMAND]",
		"Show help on a specific COMMAND, or a list of all commands.",
	},
	"cat": {
		"Usage: cat PATH",
		"Show the entire contents of a file.",
	},
	"camera": {
		"Usage: camera [on|off|forceoff]",
		"Turn on/off the camera and intensifier.",
		"Use 'forceoff' to turn off the camera and intensifier even if the",
		"software thinks they are already off.",
	},
	"laser": {
		"Usage: laser [on|off]",
		"Turn on/off the laser.",
	},
	"date": {
		"Usage: date [DT]",
		"Show the date and time, or set with Y/M/D h:m:s or M/D/Y h:m:s",
		"(e.g. 2021/1/20 12:30:01)",
	},
	"du": {
		"Usage: du [PATH]",
		"Show file or directory disk usage (default to '/').",
	},
	"format": {
		"Usage: format",
		"Format the SD card. Prompts for confirmation.",
	},
	"head": {
		"Usage: head PATH",
		"Show the first 10 lines of a file.",
	},
	"hwinfo": {
		"Usage: hwinfo",
		"Show memory and SD card use, and what hardware is working.",
	},
	"interval": {
		"Usage: interval [N]",
		"Show the frame interval, or set with N in ms.",
	},
	"ls": {
		"Usage: ls [PATH]",
		"Show a directory list (default to '/').",
	},
	"reset": {
		"Usage: reset",
		"Stop, turn off the camera and laser, close the log, and reset lights.",
	},
	"rm": {
		"Usage: rm PATH",
		"Remove a file or directory, recursively.",
		"Use 'rm /' to remove all files.",
	},
	"sensors": {
		"Usage: sensors",
		"Show current sensor readings.",
	},
	"snap": {
		"Usage: snap [N]",
		"Snap one image or N images in a burst.",
	},
	"lasermode": {
		"Usage: lasermode [MODE]",
		"Show or set the laser mode to:",
		"  'normal': turn laser on and off for each shot or burst.",
		"  'continuous': turn laser on for entire run.",
	},
	"burstsize": {
		"Usage: burstsize [N]",
		"Show the burst size or set it to N frames.",
	},
	"start": {
		"Usage: start",
		"Start running, snapping images and logging.",
	},
	"status": {
		"Usage: status",
		"Show current running status.",
	},
	"stop": {
		"Usage: stop",
		"Stop running.",
	},
	"tail": {
		"Usage: tail PATH",
		"Show the last 10 lines of a file.",
	},
	"test": {
		"Usage: test NAME",
		"Run a 'laser' or 'lights' hardware test.",
	},
	"version": {
		"Usage: version",
		"Show the software version.",
	},
}

func (con *Console) help(c *runcontrol.Controller, arg string) {
	if arg == "" {
		for i := range helpColumns[0] {
			con.printf("%-18s%-18s%-18s%-18s\r\n",
				helpColumns[0][i], helpColumns[1][i], helpColumns[2][i], helpColumns[3][i])
		}
		return
	}

	lines, ok := usage[arg]
	if !ok {
		con.printf("help: Unknown command: %s\r\n", arg)
		con.printf("Type 'help' for a list of commands.\r\n")
		return
	}
	for _, line := range lines {
		con.printf("%s\r\n", line)
	}
}
