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

import (
	"os"
)

// WriteStatus appends a timestamped message to the status log, creating
// the log if needed. An empty message appends a blank separator. Nothing
// is written when the card is not mounted.
func (s *Storage) WriteStatus(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeStatus(msg)
}

func (s *Storage) writeStatus(msg string) error {
	if !s.initialized {
		return nil
	}

	fullPath := s.fullPath(StatusLogFilename)
	_, statErr := os.Stat(fullPath)
	existed := statErr == nil

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return s.writeFailure(err)
	}
	defer f.Close()

	now := s.nowFunc().Format(statusTimeFormat)
	var text string
	if !existed {
		text = now + "\tLog file created\r\n"
	}
	if msg == "" {
		text += "\r\n\r\n"
	} else {
		text += now + "\t" + msg + "\r\n"
	}

	if err := writeAndSync(f, text); err != nil {
		return s.writeFailure(err)
	}
	return nil
}
