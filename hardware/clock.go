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

package hardware

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

const ClockName = "DS3231 real time clock"

var (
	ErrNoRTC   = errors.New("Date cannot be set. Real time clock not found.")
	ErrBadDate = errors.New("Invalid date. Use 'date Y M D h m s'.")
)

// noClockEpoch is the time reported at boot when there is no RTC.
var noClockEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var datePartsRe = regexp.MustCompile(`\d+`)

// Clock provides wall clock time. Without an RTC the time is only
// relative to boot.
type Clock struct {
	rtcDevice string
	present   bool
	boot      time.Time
	nowFunc   func() time.Time
	setSystem func(time.Time) error
}

// NewClock checks for the RTC device node, usually /dev/rtc0.
func NewClock(rtcDevice string) *Clock {
	_, err := os.Stat(rtcDevice)
	c := &Clock{
		rtcDevice: rtcDevice,
		present:   rtcDevice != "" && err == nil,
		nowFunc:   time.Now,
	}
	c.setSystem = c.setSystemAndRTC
	c.boot = c.nowFunc()
	return c
}

func (c *Clock) Present() bool {
	return c.present
}

// Now returns the current time, or 2000-01-01 plus the time since boot
// when there is no RTC.
func (c *Clock) Now() time.Time {
	now := c.nowFunc()
	if c.present {
		return now
	}
	return noClockEpoch.Add(now.Sub(c.boot))
}

// Set changes the system time and the RTC.
func (c *Clock) Set(t time.Time) error {
	if !c.present {
		return ErrNoRTC
	}
	return c.setSystem(t)
}

func (c *Clock) setSystemAndRTC(t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	if err := unix.Settimeofday(&tv); err != nil {
		return fmt.Errorf("failed to set system time: %v", err)
	}
	f, err := os.Open(c.rtcDevice)
	if err != nil {
		return fmt.Errorf("failed to open RTC: %v", err)
	}
	defer f.Close()
	u := t.UTC()
	rtc := &unix.RTCTime{
		Sec:  int32(u.Second()),
		Min:  int32(u.Minute()),
		Hour: int32(u.Hour()),
		Mday: int32(u.Day()),
		Mon:  int32(u.Month()) - 1,
		Year: int32(u.Year()) - 1900,
	}
	if err := unix.IoctlSetRTCTime(int(f.Fd()), rtc); err != nil {
		return fmt.Errorf("failed to set RTC: %v", err)
	}
	return nil
}

// ParseDate reads year, month, day, hour, minute and second from text
// where the numbers are separated by anything that isn't a digit. When
// the first number can't be a year the date is read as month, day, year.
func ParseDate(s string) (time.Time, error) {
	parts := datePartsRe.FindAllString(s, -1)
	if len(parts) < 6 {
		return time.Time{}, ErrBadDate
	}
	var n [6]int
	for i := range n {
		v, err := strconv.Atoi(parts[i])
		if err != nil {
			return time.Time{}, ErrBadDate
		}
		n[i] = v
	}
	year, month, day := n[0], n[1], n[2]
	if year <= 31 {
		month, day, year = n[0], n[1], n[2]
	}
	hour, minute, second := n[3], n[4], n[5]

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, ErrBadDate
	}
	return t, nil
}
