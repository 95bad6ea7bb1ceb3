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

// Package storage manages the SD card: mounting and formatting it,
// classifying its failures, the per-run CSV data logs, the settings and
// usage files, the status log, and a few POSIX style file utilities.
package storage

import (
	"log"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"
)

const (
	DataLogFilenameFormat = "DATA_%02d.CSV"
	MaxLogFiles           = 100
	SettingsFilename      = "SETTINGS.TXT"
	UsageFilename         = "USAGE.TXT"
	StatusLogFilename     = "STATUS.TXT"

	// bufferSize is the I/O chunk size used by the file utilities.
	bufferSize = 1025

	statusTimeFormat  = "2006-01-02T15:04:05"
	dataLogTimeFormat = "01/02/2006 15:04:05"
)

// Storage owns the card and every file open on it.
type Storage struct {
	mu          sync.Mutex
	medium      Medium
	nowFunc     func() time.Time
	createFile  func(name string, flag int, perm os.FileMode) (*os.File, error)
	initialized bool
	code        Code
	raw         RawCode

	dataLog        *os.File
	dataLogName    string
	dataLogEntries uint32
	dataLogBattery bool
}

// New returns a Storage for the medium. Mount must be called before use.
func New(medium Medium) *Storage {
	return &Storage{
		medium:     medium,
		nowFunc:    time.Now,
		createFile: os.OpenFile,
		code:       CodeUninitialized,
		raw:        RawInitNotCalled,
	}
}

// SetNowFunc sets the time source used for status log timestamps.
func (s *Storage) SetNowFunc(nowFunc func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = nowFunc
}

// SetOpenFunc sets the function used to create data log files.
func (s *Storage) SetOpenFunc(open func(name string, flag int, perm os.FileMode) (*os.File, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createFile = open
}

// Mount probes the medium and brings it up. It can be called again at
// any time to re-probe.
func (s *Storage) Mount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mount()
}

func (s *Storage) mount() error {
	s.initialized = false
	s.code = CodeUninitialized
	s.raw = RawInitNotCalled

	if raw := s.medium.Begin(); raw != RawNone {
		code := CodeUninitialized
		switch {
		case raw == RawCMD0:
			code = CodeNoCard
		case s.medium.SectorCount() <= 0:
			code = CodeNoCard
		case s.medium.FormatType() == 0:
			code = CodeBadFormat
		}
		return s.fail(code, raw, nil)
	}
	if s.medium.SectorCount() <= 0 {
		return s.fail(CodeNoCard, s.raw, nil)
	}

	s.code = CodeNone
	s.raw = RawNone
	s.initialized = true
	return nil
}

// Format erases the card and mounts it again. The attempt is written to
// the status log first because the log does not survive the format.
func (s *Storage) Format() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeStatus("SD card format")
	s.closeDataLog()

	var formatErr error
	if raw := s.medium.Format(); raw != RawNone {
		formatErr = s.fail(CodeNone, raw, nil)
		msg := formatErr.Error()
		log.Printf("SD card format failed: %s", msg)
		s.writeStatus("SD card format failed")
		s.writeStatus(msg)
	}

	if err := s.mount(); err != nil {
		if formatErr != nil {
			return formatErr
		}
		return err
	}
	if formatErr != nil {
		return formatErr
	}
	s.writeStatus("SD card formatted")
	return nil
}

func (s *Storage) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Err returns the most recent failure, or nil.
func (s *Storage) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == CodeNone && s.raw == RawNone {
		return nil
	}
	return &Error{Code: s.code, Raw: s.raw}
}

// ErrorCode returns the most recent local error code.
func (s *Storage) ErrorCode() Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// CardPresent probes the medium for a card. A missing card is recorded
// as the most recent error.
func (s *Storage) CardPresent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardPresent()
}

func (s *Storage) cardPresent() bool {
	if s.medium.SectorCount() <= 0 {
		s.code = CodeNoCard
		return false
	}
	return true
}

// FormatType returns the FAT type of the card, or 0.
func (s *Storage) FormatType() int {
	return s.medium.FormatType()
}

// Capacity returns the card size in bytes.
func (s *Storage) Capacity() uint64 {
	n := s.medium.SectorCount()
	if n <= 0 {
		return 0
	}
	return uint64(n) * SectorSize
}

// SpaceUsed returns the number of bytes used by files on the card.
func (s *Storage) SpaceUsed() uint64 {
	n, err := s.Du("/")
	if err != nil {
		return 0
	}
	return n
}

func (s *Storage) SpaceUsedPercent() float64 {
	capacity := s.Capacity()
	if capacity == 0 {
		return 0
	}
	return 100 * float64(s.SpaceUsed()) / float64(capacity)
}

// fail records and returns a failure.
func (s *Storage) fail(code Code, raw RawCode, err error) error {
	s.code = code
	s.raw = raw
	return &Error{Code: code, Raw: raw, Err: err}
}

// writeFailure classifies a failed write. The medium only reports a
// generic failure so a failed sector probe is taken to mean the card was
// removed and anything else that the card is full.
func (s *Storage) writeFailure(err error) error {
	if s.medium.SectorCount() <= 0 {
		return s.fail(CodeNoCard, RawWrite, err)
	}
	return s.fail(CodeCardFull, RawWrite, err)
}

// fullPath maps a card path to a host path. Paths cannot climb above the
// card root.
func (s *Storage) fullPath(name string) string {
	return filepath.Join(s.medium.Root(), filepath.FromSlash(path.Clean("/"+name)))
}
