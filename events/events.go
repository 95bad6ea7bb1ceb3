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

// Package events queues device events with the Cacophony event-reporter
// service, rate limited by a token bucket.
package events

import (
	"time"

	"github.com/TheCacophonyProject/event-reporter/eventclient"
	"github.com/juju/ratelimit"

	"github.com/TheCacophonyProject/plt-controller/loglimiter"
)

const (
	RunStarted      = "pltRunStarted"
	RunStopped      = "pltRunStopped"
	StorageError    = "pltStorageError"
	BatteryCritical = "pltBatteryCritical"
)

type Config struct {
	Enabled    bool          `yaml:"enabled"`
	BucketSize int64         `yaml:"bucket-size"`
	MinRefill  time.Duration `yaml:"min-refill"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		BucketSize: 20,
		MinRefill:  time.Hour,
	}
}

// Reporter sends events. When the bucket is empty events are dropped.
type Reporter struct {
	enabled bool
	bucket  *ratelimit.Bucket
	clock   ratelimit.Clock
	add     func(eventclient.Event) error
	limiter *loglimiter.LogLimiter
}

func NewReporter(conf Config) *Reporter {
	return NewReporterWithClock(conf, new(realClock), eventclient.AddEvent)
}

// NewReporterWithClock is NewReporter with the clock and the event sink
// supplied.
func NewReporterWithClock(conf Config, clock ratelimit.Clock, add func(eventclient.Event) error) *Reporter {
	size := conf.BucketSize
	if size < 1 {
		size = 1
	}
	refill := conf.MinRefill
	if refill <= 0 {
		refill = DefaultConfig().MinRefill
	}
	// Refill a full bucket over MinRefill.
	rate := float64(size) / refill.Seconds()
	return &Reporter{
		enabled: conf.Enabled,
		bucket:  ratelimit.NewBucketWithRateAndClock(rate, size, clock),
		clock:   clock,
		add:     add,
		limiter: loglimiter.New(10 * time.Minute),
	}
}

// Report queues an event. Failures are logged and otherwise ignored; the
// device keeps running without the event service.
func (r *Reporter) Report(eventType string, details map[string]interface{}) {
	if r == nil || !r.enabled {
		return
	}
	if r.bucket.TakeAvailable(1) == 0 {
		r.limiter.KeyPrintf("throttled", "event %s dropped: too many events", eventType)
		return
	}
	event := eventclient.Event{
		Timestamp: r.clock.Now(),
		Type:      eventType,
		Details:   details,
	}
	if err := r.add(event); err != nil {
		r.limiter.KeyPrintf("failed", "failed to queue %s event: %v", eventType, err)
	}
}

// realClock implements ratelimit.Clock in terms of standard time functions.
type realClock struct{}

// Now implements Clock.Now by calling time.Now.
func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.Sleep by calling time.Sleep.
func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
