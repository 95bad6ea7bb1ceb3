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

package settings

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/TheCacophonyProject/plt-controller/storage"
)

const (
	DefaultFrameInterval   = 1000 * time.Millisecond
	DefaultBurstSize       = 1
	DefaultLaserContinuous = false

	// MinimumFrameInterval is the shortest interval a snap-and-log event
	// can keep up with.
	MinimumFrameInterval = 200 * time.Millisecond

	MaxBurstSize = 255

	intervalKey        = "interval"
	burstSizeKey       = "burstsize"
	laserContinuousKey = "lasercontinuous"
)

var (
	ErrIntervalTooShort = errors.New("frame interval is below the minimum")
	ErrBadBurstSize     = errors.New("burst size must be between 1 and 255")
)

// Settings are the operator settings kept in the settings file.
type Settings struct {
	FrameInterval   time.Duration
	BurstSize       uint8
	LaserContinuous bool
}

func Default() Settings {
	return Settings{
		FrameInterval:   DefaultFrameInterval,
		BurstSize:       DefaultBurstSize,
		LaserContinuous: DefaultLaserContinuous,
	}
}

// SetFrameInterval sets the interval between events. Zero restores the
// default; anything else below MinimumFrameInterval is rejected.
func (s *Settings) SetFrameInterval(d time.Duration) error {
	if d == 0 {
		s.FrameInterval = DefaultFrameInterval
		return nil
	}
	if d < MinimumFrameInterval {
		return ErrIntervalTooShort
	}
	s.FrameInterval = d
	return nil
}

func (s *Settings) SetBurstSize(n int) error {
	if n < 1 || n > MaxBurstSize {
		return ErrBadBurstSize
	}
	s.BurstSize = uint8(n)
	return nil
}

func (s *Settings) SetLaserContinuous(continuous bool) {
	s.LaserContinuous = continuous
}

// Entries returns the settings in settings file order.
func (s Settings) Entries() []storage.Entry {
	continuous := "0"
	if s.LaserContinuous {
		continuous = "1"
	}
	return []storage.Entry{
		{Key: intervalKey, Value: strconv.FormatInt(int64(s.FrameInterval/time.Millisecond), 10)},
		{Key: burstSizeKey, Value: strconv.Itoa(int(s.BurstSize))},
		{Key: laserContinuousKey, Value: continuous},
	}
}

// FromKeyValue builds settings from a settings file's values. Missing or
// invalid values keep their defaults.
func FromKeyValue(values map[string]string) Settings {
	s := Default()
	if v, ok := values[intervalKey]; ok {
		ms, err := strconv.ParseUint(v, 10, 32)
		if err == nil {
			err = s.SetFrameInterval(time.Duration(ms) * time.Millisecond)
		}
		if err != nil {
			log.Printf("ignoring settings interval %q: %v", v, err)
		}
	}
	if v, ok := values[burstSizeKey]; ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			err = s.SetBurstSize(n)
		}
		if err != nil {
			log.Printf("ignoring settings burst size %q: %v", v, err)
		}
	}
	if v, ok := values[laserContinuousKey]; ok {
		s.LaserContinuous = v == "1"
	}
	return s
}
