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
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

var dataLogColumns = []string{
	"Timestamp",
	"Milliseconds",
	"Pressure",
	"Depth",
	"Water_Temperature",
	"Device_Temperature",
	"Acceleration_X",
	"Acceleration_Y",
	"Acceleration_Z",
	"Magnetic_X",
	"Magnetic_Y",
	"Magnetic_Z",
	"Gyroscope_X",
	"Gyroscope_Y",
	"Gyroscope_Z",
}

var batteryColumns = []string{
	"Controller_Volts",
	"Controller_Percent",
	"Main_Volts",
	"Main_Percent",
}

// BatteryLevels are the battery readings logged with a record.
type BatteryLevels struct {
	ControllerVolts   float64
	ControllerPercent float64
	MainVolts         float64
	MainPercent       float64
}

// DataRecord is one row of a data log.
type DataRecord struct {
	Time              time.Time
	Milliseconds      int64
	Pressure          float64
	Depth             float64
	WaterTemperature  float64
	DeviceTemperature float64
	Acceleration      [3]float64
	Magnetic          [3]float64
	Gyroscope         [3]float64
	Batteries         BatteryLevels
}

// DataLogHeader returns the header row for a data log.
func DataLogHeader(withBatteries bool) string {
	cols := dataLogColumns
	if withBatteries {
		cols = append(append([]string{}, dataLogColumns...), batteryColumns...)
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ",") + "\r\n"
}

// FormatDataRecord returns the CSV row for a record.
func FormatDataRecord(r *DataRecord, withBatteries bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, `"%s",%d,%f,%f,%f,%f,%f,%f,%f,%f,%f,%f,%f,%f,%f`,
		r.Time.Format(dataLogTimeFormat),
		r.Milliseconds,
		r.Pressure,
		r.Depth,
		r.WaterTemperature,
		r.DeviceTemperature,
		r.Acceleration[0], r.Acceleration[1], r.Acceleration[2],
		r.Magnetic[0], r.Magnetic[1], r.Magnetic[2],
		r.Gyroscope[0], r.Gyroscope[1], r.Gyroscope[2])
	if withBatteries {
		fmt.Fprintf(&b, ",%5.3f,%3.1f,%5.3f,%3.1f",
			r.Batteries.ControllerVolts,
			r.Batteries.ControllerPercent,
			r.Batteries.MainVolts,
			r.Batteries.MainPercent)
	}
	b.WriteString("\r\n")
	return b.String()
}

// NewDataLog closes any open data log and creates the lowest numbered
// unused DATA_NN.CSV, starting it with the header row.
func (s *Storage) NewDataLog(withBatteries bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return s.fail(CodeUninitialized, s.raw, nil)
	}
	s.closeDataLog()
	s.dataLogEntries = 0
	s.dataLogName = ""

	for i := 0; i < MaxLogFiles; i++ {
		name := fmt.Sprintf(DataLogFilenameFormat, i)
		fullPath := s.fullPath(name)
		if _, err := os.Stat(fullPath); err == nil {
			continue
		}

		f, err := s.createFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if s.medium.SectorCount() <= 0 {
				return s.fail(CodeNoCard, RawWrite, err)
			}
			return s.fail(CodeNone, RawWrite, err)
		}

		if err := writeAndSync(f, DataLogHeader(withBatteries)); err != nil {
			f.Close()
			if rmErr := os.Remove(fullPath); rmErr != nil {
				log.Printf("failed to remove %s: %v", name, rmErr)
			}
			return s.writeFailure(err)
		}

		s.dataLog = f
		s.dataLogName = name
		s.dataLogBattery = withBatteries
		return nil
	}
	return s.fail(CodeTooManyLogFiles, RawNone, nil)
}

// WriteDataLog appends one row to the open data log and syncs it. On
// failure the log is closed and the entry count reset.
func (s *Storage) WriteDataLog(r *DataRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataLog == nil {
		return ErrNoDataLog
	}
	if err := writeAndSync(s.dataLog, FormatDataRecord(r, s.dataLogBattery)); err != nil {
		s.closeDataLog()
		s.dataLogEntries = 0
		return s.writeFailure(err)
	}
	s.dataLogEntries++
	return nil
}

// CloseDataLog closes the open data log, if any. The name and entry count
// stay available until the next NewDataLog.
func (s *Storage) CloseDataLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeDataLog()
}

func (s *Storage) closeDataLog() {
	if s.dataLog == nil {
		return
	}
	if err := s.dataLog.Close(); err != nil {
		log.Printf("failed to close %s: %v", s.dataLogName, err)
	}
	s.dataLog = nil
}

func (s *Storage) DataLogOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataLog != nil
}

func (s *Storage) DataLogName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataLogName
}

func (s *Storage) DataLogEntries() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataLogEntries
}

func writeAndSync(f *os.File, line string) error {
	if _, err := f.WriteString(line); err != nil {
		return err
	}
	return f.Sync()
}
