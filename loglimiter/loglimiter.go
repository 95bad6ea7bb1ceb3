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

package loglimiter

import (
	"fmt"
	"log"
	"time"
)

// New returns a new LogLimiter with the configured minimum log interval.
func New(interval time.Duration) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		nowFunc:  time.Now,
		previous: make(map[string]entry),
	}
}

// LogLimiter suppresses a log message if the same message was logged
// under the same key within some time interval. Each key tracks its own
// previous message so interleaved sources don't defeat each other.
type LogLimiter struct {
	interval time.Duration
	nowFunc  func() time.Time
	previous map[string]entry
}

type entry struct {
	message string
	time    time.Time
}

func (limiter *LogLimiter) Printf(format string, v ...interface{}) {
	limiter.Print(fmt.Sprintf(format, v...))
}

func (limiter *LogLimiter) Print(s string) {
	limiter.KeyPrint("", s)
}

// KeyPrintf is Printf with suppression tracked under key.
func (limiter *LogLimiter) KeyPrintf(key, format string, v ...interface{}) {
	limiter.KeyPrint(key, fmt.Sprintf(format, v...))
}

func (limiter *LogLimiter) KeyPrint(key, s string) {
	now := limiter.nowFunc()
	prev, ok := limiter.previous[key]
	if ok && now.Sub(prev.time) < limiter.interval && s == prev.message {
		return
	}

	log.Print(s)
	limiter.previous[key] = entry{message: s, time: now}
}

// Reset forgets the previous message for key so the next one is logged.
func (limiter *LogLimiter) Reset(key string) {
	delete(limiter.previous, key)
}
