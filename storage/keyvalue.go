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
	"io/ioutil"
	"os"
	"strings"
)

// Entry is one line of a key-value file.
type Entry struct {
	Key   string
	Value string
}

// LoadKeyValue reads a file of "name value" lines. It returns nil when the
// file is missing or cannot be read; the two cases are not told apart.
// Lines without both a name and a value are skipped.
func (s *Storage) LoadKeyValue(name string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}
	buf, err := ioutil.ReadFile(s.fullPath(name))
	if err != nil {
		return nil
	}
	return ParseKeyValue(string(buf))
}

// ParseKeyValue parses "name value" lines. The value is the rest of the
// line after the name and any white space.
func ParseKeyValue(text string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		i := strings.IndexAny(line, " \t")
		if i <= 0 {
			continue
		}
		key := line[:i]
		value := strings.TrimSpace(line[i:])
		if value == "" {
			continue
		}
		values[key] = value
	}
	return values
}

// SaveKeyValue replaces a file with one "name value" line per entry.
func (s *Storage) SaveKeyValue(name string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return s.fail(CodeUninitialized, s.raw, nil)
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Key)
		b.WriteString(" ")
		b.WriteString(e.Value)
		b.WriteString("\r\n")
	}

	f, err := os.Create(s.fullPath(name))
	if err != nil {
		return s.fail(CodeCardFull, RawWrite, err)
	}
	if err := writeAndSync(f, b.String()); err != nil {
		f.Close()
		return s.fail(CodeCardFull, RawWrite, err)
	}
	if err := f.Close(); err != nil {
		return s.fail(CodeCardFull, RawWrite, err)
	}
	return nil
}
