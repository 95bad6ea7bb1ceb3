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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TheCacophonyProject/plt-controller/storage"
)

func TestDefaults(t *testing.T) {
	s := Default()
	assert.Equal(t, time.Second, s.FrameInterval)
	assert.EqualValues(t, 1, s.BurstSize)
	assert.False(t, s.LaserContinuous)
}

func TestSetFrameInterval(t *testing.T) {
	s := Default()

	assert.NoError(t, s.SetFrameInterval(5*time.Second))
	assert.Equal(t, 5*time.Second, s.FrameInterval)

	assert.Equal(t, ErrIntervalTooShort, s.SetFrameInterval(199*time.Millisecond))
	assert.Equal(t, 5*time.Second, s.FrameInterval)

	assert.NoError(t, s.SetFrameInterval(MinimumFrameInterval))
	assert.Equal(t, MinimumFrameInterval, s.FrameInterval)

	assert.NoError(t, s.SetFrameInterval(0))
	assert.Equal(t, DefaultFrameInterval, s.FrameInterval)
}

func TestSetBurstSize(t *testing.T) {
	s := Default()
	assert.NoError(t, s.SetBurstSize(3))
	assert.EqualValues(t, 3, s.BurstSize)
	assert.Equal(t, ErrBadBurstSize, s.SetBurstSize(0))
	assert.Equal(t, ErrBadBurstSize, s.SetBurstSize(256))
	assert.EqualValues(t, 3, s.BurstSize)
}

func TestEntries(t *testing.T) {
	s := Settings{FrameInterval: time.Second, BurstSize: 3, LaserContinuous: true}
	assert.Equal(t, []storage.Entry{
		{Key: "interval", Value: "1000"},
		{Key: "burstsize", Value: "3"},
		{Key: "lasercontinuous", Value: "1"},
	}, s.Entries())
}

func TestFromKeyValue(t *testing.T) {
	s := FromKeyValue(map[string]string{
		"interval":        "1000",
		"burstsize":       "3",
		"lasercontinuous": "1",
	})
	assert.Equal(t, Settings{FrameInterval: time.Second, BurstSize: 3, LaserContinuous: true}, s)
}

func TestFromKeyValueKeepsDefaultsForBadValues(t *testing.T) {
	s := FromKeyValue(map[string]string{
		"interval":        "50",
		"burstsize":       "lots",
		"lasercontinuous": "yes",
	})
	assert.Equal(t, Default(), s)

	assert.Equal(t, Default(), FromKeyValue(nil))
}
