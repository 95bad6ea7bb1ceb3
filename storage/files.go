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
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// DefaultLines is the number of lines shown by Head and Tail.
const DefaultLines = 10

// Cat writes the whole of a file to w.
func (s *Storage) Cat(w io.Writer, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openFile(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.CopyBuffer(w, f, make([]byte, bufferSize)); err != nil {
		return s.fail(CodeNone, RawRead, err)
	}
	return nil
}

// Head writes the first n lines of a file to w.
func (s *Storage) Head(w io.Writer, name string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openFile(name)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, bufferSize)
	for i := 0; i < n; i++ {
		line, err := r.ReadString('\n')
		if line != "" {
			if _, werr := io.WriteString(w, line); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return s.fail(CodeNone, RawRead, err)
		}
	}
	return nil
}

// Tail writes the last n lines of a file to w. The file is scanned
// backwards in fixed size chunks so its size does not matter.
func (s *Storage) Tail(w io.Writer, name string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openFile(name)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return s.fail(CodeNone, RawRead, err)
	}
	start, err := tailStart(f, info.Size(), n)
	if err != nil {
		return s.fail(CodeNone, RawRead, err)
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return s.fail(CodeNone, RawRead, err)
	}
	if _, err := io.CopyBuffer(w, f, make([]byte, bufferSize)); err != nil {
		return s.fail(CodeNone, RawRead, err)
	}
	return nil
}

// tailStart finds the offset of the first of the last n lines. A
// terminator on the final byte ends the last line rather than starting
// a new one.
func tailStart(r io.ReaderAt, size int64, n int) (int64, error) {
	if n <= 0 {
		return size, nil
	}
	chunk := make([]byte, bufferSize-1)
	end := size
	if end > 0 {
		last := make([]byte, 1)
		if _, err := r.ReadAt(last, end-1); err != nil {
			return 0, err
		}
		if last[0] == '\n' {
			end--
		}
	}

	count := 0
	for end > 0 {
		start := end - int64(len(chunk))
		if start < 0 {
			start = 0
		}
		buf := chunk[:end-start]
		if _, err := r.ReadAt(buf, start); err != nil && err != io.EOF {
			return 0, err
		}
		for i := len(buf) - 1; i >= 0; i-- {
			if buf[i] != '\n' {
				continue
			}
			count++
			if count == n {
				return start + int64(i) + 1, nil
			}
		}
		end = start
	}
	return 0, nil
}

// Ls writes a listing of a directory to w.
func (s *Storage) Ls(w io.Writer, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, fullPath, err := s.statPath(name)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return s.fail(CodeIsFile, RawNone, nil)
	}

	infos, err := ioutil.ReadDir(fullPath)
	if err != nil {
		return s.fail(CodeNone, RawRead, err)
	}
	for _, fi := range infos {
		if fi.IsDir() {
			fmt.Fprintf(w, "%s/\r\n", fi.Name())
		} else {
			fmt.Fprintf(w, "%-20s %9d\r\n", fi.Name(), fi.Size())
		}
	}
	return nil
}

// Du returns the number of bytes used by a file or a directory tree.
func (s *Storage) Du(name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, fullPath, err := s.statPath(name)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return uint64(info.Size()), nil
	}

	var total uint64
	err = filepath.Walk(fullPath, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			total += uint64(fi.Size())
		}
		return nil
	})
	if err != nil {
		return 0, s.fail(CodeNone, RawRead, err)
	}
	return total, nil
}

// Rm removes a file or a directory tree. Removing the root removes what
// is in it but leaves the root itself. The open data log, and any
// directory holding it, can't be removed.
func (s *Storage) Rm(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, fullPath, err := s.statPath(name)
	if err != nil {
		return err
	}
	if s.holdsDataLog(fullPath) {
		return s.fail(CodeCannotRemove, RawNone, ErrDataLogOpen)
	}

	if fullPath != filepath.Clean(s.medium.Root()) {
		if err := os.RemoveAll(fullPath); err != nil {
			return s.fail(CodeCannotRemove, RawWrite, err)
		}
		return nil
	}

	infos, err := ioutil.ReadDir(fullPath)
	if err != nil {
		return s.fail(CodeCannotRemove, RawRead, err)
	}
	for _, fi := range infos {
		if err := os.RemoveAll(filepath.Join(fullPath, fi.Name())); err != nil {
			return s.fail(CodeCannotRemove, RawWrite, err)
		}
	}
	return nil
}

func (s *Storage) holdsDataLog(fullPath string) bool {
	if s.dataLog == nil {
		return false
	}
	logPath := s.fullPath(s.dataLogName)
	if logPath == fullPath {
		return true
	}
	rel, err := filepath.Rel(fullPath, logPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// statPath checks the card is present and mounted and the path exists.
func (s *Storage) statPath(name string) (os.FileInfo, string, error) {
	if !s.cardPresent() {
		return nil, "", s.fail(CodeNoCard, s.raw, nil)
	}
	if !s.initialized {
		return nil, "", s.fail(CodeUninitialized, s.raw, nil)
	}
	fullPath := s.fullPath(name)
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, "", s.fail(CodeBadPath, RawNone, err)
	}
	return info, fullPath, nil
}

// openFile opens a regular file for reading.
func (s *Storage) openFile(name string) (*os.File, error) {
	info, fullPath, err := s.statPath(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, s.fail(CodeIsDir, RawNone, nil)
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, s.fail(CodeBadPath, RawRead, err)
	}
	return f, nil
}
