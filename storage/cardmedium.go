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
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	msdosSuperMagic = 0x4d44
	sysBlockDir     = "/sys/class/block"

	// FAT16 volumes top out at 2 GiB.
	maxFAT16Bytes = 2 << 30
)

// CardMedium is an SD card block device mounted as a FAT volume.
type CardMedium struct {
	Device     string
	MountPoint string
	FSType     string
}

func NewCardMedium(device, mountPoint, fsType string) *CardMedium {
	return &CardMedium{
		Device:     device,
		MountPoint: mountPoint,
		FSType:     fsType,
	}
}

func (m *CardMedium) Begin() RawCode {
	if m.SectorCount() <= 0 {
		return RawCMD0
	}
	if !m.mounted() {
		if err := os.MkdirAll(m.MountPoint, 0755); err != nil {
			log.Printf("failed to create mount point %s: %v", m.MountPoint, err)
			return RawMount
		}
		if err := unix.Mount(m.Device, m.MountPoint, m.FSType, 0, ""); err != nil {
			log.Printf("failed to mount %s: %v", m.Device, err)
			return RawMount
		}
	}
	if m.FormatType() == 0 {
		return RawMount
	}
	return RawNone
}

// SectorCount reads the size of the block device from sysfs, which
// counts 512 byte sectors. A removed card has no sysfs entry.
func (m *CardMedium) SectorCount() int64 {
	buf, err := ioutil.ReadFile(filepath.Join(sysBlockDir, filepath.Base(m.Device), "size"))
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(buf)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (m *CardMedium) FormatType() int {
	if !m.mounted() {
		return 0
	}
	var st unix.Statfs_t
	if err := unix.Statfs(m.MountPoint, &st); err != nil {
		return 0
	}
	if st.Type != msdosSuperMagic {
		return 0
	}
	if m.SectorCount()*SectorSize > maxFAT16Bytes {
		return 32
	}
	return 16
}

func (m *CardMedium) Format() RawCode {
	if m.mounted() {
		if err := unix.Unmount(m.MountPoint, 0); err != nil {
			log.Printf("failed to unmount %s: %v", m.MountPoint, err)
			return RawFormat
		}
	}
	out, err := exec.Command("mkfs.vfat", "-F", "32", "-n", "PLT", m.Device).CombinedOutput()
	if err != nil {
		log.Printf("mkfs.vfat failed: %v: %s", err, out)
		return RawFormat
	}
	return RawNone
}

func (m *CardMedium) Root() string {
	return m.MountPoint
}

// mounted reports whether the mount point is on a different device to
// its parent directory.
func (m *CardMedium) mounted() bool {
	var st, parent unix.Stat_t
	if err := unix.Stat(m.MountPoint, &st); err != nil {
		return false
	}
	if err := unix.Stat(filepath.Dir(m.MountPoint), &parent); err != nil {
		return false
	}
	return st.Dev != parent.Dev
}
