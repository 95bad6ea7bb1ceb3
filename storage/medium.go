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
	"path/filepath"

	"golang.org/x/sys/unix"
)

// SectorSize is the size in bytes of one medium sector.
const SectorSize = 512

// Medium is the raw storage driver. It gives no cause for its failures
// beyond a RawCode; Storage infers the rest from SectorCount and
// FormatType.
type Medium interface {
	// Begin brings the medium up so files under Root can be used.
	Begin() RawCode
	// SectorCount is <= 0 when no card is present.
	SectorCount() int64
	// FormatType is 16 or 32 for FAT volumes and 0 when unknown.
	FormatType() int
	// Format erases the medium.
	Format() RawCode
	// Root is the directory the medium's files live under.
	Root() string
}

// DirMedium uses a plain directory as the card. A missing directory is
// reported as a missing card.
type DirMedium struct {
	Dir string
}

func NewDirMedium(dir string) *DirMedium {
	return &DirMedium{Dir: dir}
}

func (m *DirMedium) Begin() RawCode {
	info, err := os.Stat(m.Dir)
	if err != nil || !info.IsDir() {
		return RawCMD0
	}
	return RawNone
}

func (m *DirMedium) SectorCount() int64 {
	var st unix.Statfs_t
	if err := unix.Statfs(m.Dir, &st); err != nil {
		return 0
	}
	return int64(st.Blocks) * int64(st.Bsize) / SectorSize
}

func (m *DirMedium) FormatType() int {
	if m.Begin() != RawNone {
		return 0
	}
	return 32
}

func (m *DirMedium) Format() RawCode {
	infos, err := ioutil.ReadDir(m.Dir)
	if err != nil {
		return RawFormat
	}
	for _, info := range infos {
		if err := os.RemoveAll(filepath.Join(m.Dir, info.Name())); err != nil {
			return RawFormat
		}
	}
	return RawNone
}

func (m *DirMedium) Root() string {
	return m.Dir
}
