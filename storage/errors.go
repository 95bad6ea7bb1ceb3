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

package storage

import "errors"

// Code is a storage failure as classified by this package. Most codes are
// inferred: the medium only reports generic failures, so a missing card or
// a full card is guessed from a follow up sector probe.
type Code int

const (
	CodeNone Code = iota
	CodeUninitialized
	CodeNoCard
	CodeBadFormat
	CodeCardFull
	CodeTooManyLogFiles
	CodeBadPath
	CodeIsDir
	CodeIsFile
	CodeCannotRemove
)

var codeMessages = map[Code]string{
	CodeNone:            "No error.",
	CodeUninitialized:   "Initialization failure.",
	CodeNoCard:          "Missing SD card or bad card format.",
	CodeBadFormat:       "Unsupported SD card format.",
	CodeCardFull:        "SD card is full.",
	CodeTooManyLogFiles: "Too many log files; 100 max.",
	CodeBadPath:         "No such file or directory.",
	CodeIsDir:           "Path is for a directory, not a file.",
	CodeIsFile:          "Path is for a file, not a directory.",
	CodeCannotRemove:    "Cannot remove file or directory.",
}

func (c Code) String() string {
	if m, ok := codeMessages[c]; ok {
		return m
	}
	return "Unknown error"
}

// RawCode is the error reported by the medium driver itself.
type RawCode int

const (
	RawNone RawCode = iota
	RawInitNotCalled
	RawCMD0
	RawMount
	RawRead
	RawWrite
	RawFormat
)

var rawMessages = map[RawCode]string{
	RawNone:          "No error.",
	RawInitNotCalled: "Card initialization not done.",
	RawCMD0:          "Card is not responding.",
	RawMount:         "Card volume could not be mounted.",
	RawRead:          "Card read failed.",
	RawWrite:         "Card write failed.",
	RawFormat:        "Card format failed.",
}

func (r RawCode) String() string {
	if m, ok := rawMessages[r]; ok {
		return m
	}
	return "Unknown error"
}

// Error is a storage failure. The local Code takes precedence over the
// raw medium code when both are set.
type Error struct {
	Code Code
	Raw  RawCode
	Err  error
}

func (e *Error) Error() string {
	return e.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the operator facing message for the error.
func (e *Error) Message() string {
	if e.Code != CodeNone {
		return e.Code.String()
	}
	return e.Raw.String()
}

// IsCode reports whether err is a storage Error with the given local code.
func IsCode(err error, code Code) bool {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Code == code
	}
	return false
}

var (
	// ErrNoDataLog is returned when writing a data row with no data log open.
	ErrNoDataLog = errors.New("no data log open")
	// ErrDataLogOpen is wrapped by a CodeCannotRemove error for a path
	// holding the open data log.
	ErrDataLogOpen = errors.New("data log is open")
)
