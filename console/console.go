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

// Package console is the operator's command line, served over a serial
// port or a terminal.
package console

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/TheCacophonyProject/plt-controller/runcontrol"
)

const Prompt = "PLT > "

// Runner runs fn where it may use the controller. *runcontrol.Controller
// is a Runner while its Run loop is going.
type Runner interface {
	Do(ctx context.Context, fn func(*runcontrol.Controller)) error
}

type handler func(con *Console, c *runcontrol.Controller, arg string)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"help":      (*Console).help,
		"date":      (*Console).date,
		"version":   (*Console).version,
		"hwinfo":    (*Console).hwinfo,
		"status":    (*Console).status,
		"test":      (*Console).test,
		"interval":  (*Console).interval,
		"lasermode": (*Console).laserMode,
		"burstsize": (*Console).burstSize,
		"camera":    (*Console).camera,
		"laser":     (*Console).laser,
		"reset":     (*Console).reset,
		"start":     (*Console).start,
		"stop":      (*Console).stop,
		"snap":      (*Console).snap,
		"cat":       (*Console).cat,
		"du":        (*Console).du,
		"head":      (*Console).head,
		"ls":        (*Console).ls,
		"rm":        (*Console).rm,
		"tail":      (*Console).tail,
	}
}

type Console struct {
	runner      Runner
	softVersion string
	in          *bufio.Scanner
	out         io.Writer
	echo        bool
}

// New returns a console reading commands from r and writing to w. With
// echo set each line read is written back, for serial terminals that
// don't echo locally.
func New(r io.Reader, w io.Writer, runner Runner, version string, echo bool) *Console {
	in := bufio.NewScanner(r)
	in.Split(scanLines)
	return &Console{
		runner:      runner,
		softVersion: version,
		in:          in,
		out:         w,
		echo:        echo,
	}
}

// Serve reads and runs commands until the input ends or ctx is done.
func (con *Console) Serve(ctx context.Context) error {
	con.printf(Prompt)
	for con.in.Scan() {
		line := con.in.Text()
		if con.echo {
			con.printf("%s\r\n", line)
		}
		con.Dispatch(ctx, line)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		con.printf(Prompt)
	}
	return con.in.Err()
}

// Dispatch runs one command line.
func (con *Console) Dispatch(ctx context.Context, line string) {
	command, arg := parseLine(line)
	if command == "" {
		return
	}

	if command == "format" {
		con.format(ctx)
		return
	}
	h, ok := handlers[command]
	if !ok && strings.HasPrefix(command, "sensor") {
		h, ok = (*Console).sensors, true
	}
	if !ok {
		con.printf("Unknown command: %s\r\n", command)
		con.printf("Type 'help' for a list of commands.\r\n")
		return
	}
	if err := con.runner.Do(ctx, func(c *runcontrol.Controller) { h(con, c, arg) }); err != nil {
		log.Printf("console command %q not run: %v", command, err)
	}
}

// format asks for confirmation outside of the control loop so the loop
// keeps running while the operator decides.
func (con *Console) format(ctx context.Context) {
	var running bool
	if err := con.runner.Do(ctx, func(c *runcontrol.Controller) { running = c.Status().Running() }); err != nil {
		return
	}
	if running {
		con.printf("Cannot format SD card while imaging is in progress.\r\n")
		con.printf("Type 'stop' first.\r\n")
		return
	}

	con.printf("Formatting will delete all SD card files.\r\n")
	con.printf("Are you sure (y|n)? ")
	var answer string
	if con.in.Scan() {
		answer = strings.TrimSpace(con.in.Text())
	}
	con.printf("%s\r\n", answer)

	if answer == "" || (answer[0] != 'y' && answer[0] != 'Y') {
		con.printf("Format canceled.\r\n")
		return
	}
	err := con.runner.Do(ctx, func(c *runcontrol.Controller) {
		if err := c.Format(); err != nil {
			con.printf("%s\r\n", message(err))
		}
	})
	if err != nil {
		log.Printf("console format not run: %v", err)
	}
}

func (con *Console) printf(format string, v ...interface{}) {
	fmt.Fprintf(con.out, format, v...)
}

// parseLine splits a line into the first word and the rest of the line.
func parseLine(line string) (command, arg string) {
	line = strings.TrimSpace(line)
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}

// scanLines is bufio.ScanLines for terminals that end lines with \r, \n
// or both. Blank lines are skipped.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\r' || data[start] == '\n') {
		start++
	}
	if i := bytes.IndexAny(data[start:], "\r\n"); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF && start < len(data) {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}
