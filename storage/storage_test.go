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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2020, 6, 1, 12, 30, 0, 0, time.UTC)

func newTestStorage(t *testing.T) (*Storage, string) {
	dir, err := ioutil.TempDir("", "plt-storage")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s := New(NewDirMedium(dir))
	s.SetNowFunc(func() time.Time { return testNow })
	require.NoError(t, s.Mount())
	return s, dir
}

func readFile(t *testing.T, path string) string {
	buf, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	return string(buf)
}

func TestMountIsIdempotent(t *testing.T) {
	s, _ := newTestStorage(t)
	require.NoError(t, s.Mount())
	assert.True(t, s.Initialized())
	assert.NoError(t, s.Err())
}

func TestMountWithoutCard(t *testing.T) {
	s := New(NewDirMedium("/nonexistent/plt-card"))

	err1 := s.Mount()
	err2 := s.Mount()
	assert.True(t, IsCode(err1, CodeNoCard))
	assert.True(t, IsCode(err2, CodeNoCard))
	assert.Equal(t, err1.Error(), err2.Error())
	assert.Equal(t, "Missing SD card or bad card format.", err1.Error())
	assert.False(t, s.Initialized())
}

type fakeMedium struct {
	DirMedium
	begin   RawCode
	sectors int64
	fat     int
}

func (m *fakeMedium) Begin() RawCode     { return m.begin }
func (m *fakeMedium) SectorCount() int64 { return m.sectors }
func (m *fakeMedium) FormatType() int    { return m.fat }

func TestMountClassification(t *testing.T) {
	cases := []struct {
		name string
		m    *fakeMedium
		want Code
	}{
		{"cmd0", &fakeMedium{begin: RawCMD0, sectors: 100, fat: 32}, CodeNoCard},
		{"no sectors", &fakeMedium{begin: RawMount, sectors: 0, fat: 32}, CodeNoCard},
		{"bad format", &fakeMedium{begin: RawMount, sectors: 100, fat: 0}, CodeBadFormat},
		{"other", &fakeMedium{begin: RawMount, sectors: 100, fat: 32}, CodeUninitialized},
		{"begin ok no sectors", &fakeMedium{begin: RawNone, sectors: 0, fat: 32}, CodeNoCard},
	}
	for _, c := range cases {
		s := New(c.m)
		err := s.Mount()
		require.Error(t, err, c.name)
		assert.Equal(t, c.want, s.ErrorCode(), c.name)
	}
}

func TestErrorMessagePrecedence(t *testing.T) {
	assert.Equal(t, "SD card is full.", (&Error{Code: CodeCardFull, Raw: RawWrite}).Error())
	assert.Equal(t, "Card write failed.", (&Error{Code: CodeNone, Raw: RawWrite}).Error())
	assert.Equal(t, "Unknown error", (&Error{Raw: RawCode(99)}).Error())
}

func TestNewDataLogWritesHeader(t *testing.T) {
	s, dir := newTestStorage(t)

	require.NoError(t, s.NewDataLog(false))
	assert.Equal(t, "DATA_00.CSV", s.DataLogName())
	assert.True(t, s.DataLogOpen())
	s.CloseDataLog()

	header := readFile(t, filepath.Join(dir, "DATA_00.CSV"))
	assert.Equal(t, `"Timestamp","Milliseconds","Pressure","Depth","Water_Temperature",`+
		`"Device_Temperature","Acceleration_X","Acceleration_Y","Acceleration_Z",`+
		`"Magnetic_X","Magnetic_Y","Magnetic_Z","Gyroscope_X","Gyroscope_Y","Gyroscope_Z"`+"\r\n", header)

	require.NoError(t, s.NewDataLog(true))
	assert.Equal(t, "DATA_01.CSV", s.DataLogName())
	s.CloseDataLog()
	assert.True(t, strings.HasSuffix(readFile(t, filepath.Join(dir, "DATA_01.CSV")),
		`"Controller_Volts","Controller_Percent","Main_Volts","Main_Percent"`+"\r\n"))
}

func TestNewDataLogUsesLowestFreeName(t *testing.T) {
	s, dir := newTestStorage(t)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "DATA_00.CSV"), nil, 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "DATA_02.CSV"), nil, 0644))

	require.NoError(t, s.NewDataLog(false))
	assert.Equal(t, "DATA_01.CSV", s.DataLogName())
}

func TestTooManyLogFiles(t *testing.T) {
	s, _ := newTestStorage(t)
	for i := 0; i < MaxLogFiles; i++ {
		require.NoError(t, s.NewDataLog(false))
	}
	assert.Equal(t, fmt.Sprintf(DataLogFilenameFormat, MaxLogFiles-1), s.DataLogName())

	err := s.NewDataLog(false)
	assert.True(t, IsCode(err, CodeTooManyLogFiles))
	assert.Equal(t, "Too many log files; 100 max.", err.Error())
	assert.False(t, s.DataLogOpen())
}

func TestNewDataLogNeedsMount(t *testing.T) {
	s := New(NewDirMedium("/nonexistent/plt-card"))
	err := s.NewDataLog(false)
	assert.True(t, IsCode(err, CodeUninitialized))
}

func TestWriteDataLog(t *testing.T) {
	s, dir := newTestStorage(t)
	require.NoError(t, s.NewDataLog(true))

	r := &DataRecord{
		Time:              testNow,
		Milliseconds:      250,
		Pressure:          1013.25,
		Depth:             1.5,
		WaterTemperature:  12.25,
		DeviceTemperature: 20,
		Acceleration:      [3]float64{0, 0, 1},
		Magnetic:          [3]float64{0.1, 0.2, 0.3},
		Gyroscope:         [3]float64{1, 2, 3},
		Batteries: BatteryLevels{
			ControllerVolts:   3.7,
			ControllerPercent: 88.5,
			MainVolts:         12.1,
			MainPercent:       64,
		},
	}
	require.NoError(t, s.WriteDataLog(r))
	require.NoError(t, s.WriteDataLog(r))
	assert.EqualValues(t, 2, s.DataLogEntries())
	s.CloseDataLog()

	lines := strings.Split(readFile(t, filepath.Join(dir, "DATA_00.CSV")), "\r\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"06/01/2020 12:30:00",250,1013.250000,1.500000,12.250000,20.000000,`+
		`0.000000,0.000000,1.000000,0.100000,0.200000,0.300000,1.000000,2.000000,3.000000,`+
		`3.700,88.5,12.100,64.0`, lines[1])
	assert.Equal(t, lines[1], lines[2])
	assert.Equal(t, "", lines[3])
}

func TestWriteDataLogWithoutLog(t *testing.T) {
	s, _ := newTestStorage(t)
	assert.Equal(t, ErrNoDataLog, s.WriteDataLog(&DataRecord{}))
}

func TestWriteDataLogFailureIsCardFull(t *testing.T) {
	s, _ := newTestStorage(t)
	require.NoError(t, s.NewDataLog(false))
	require.NoError(t, s.WriteDataLog(&DataRecord{}))

	full, err := os.OpenFile("/dev/full", os.O_WRONLY, 0)
	if err != nil {
		t.Skip("/dev/full not available")
	}
	s.dataLog.Close()
	s.dataLog = full

	err = s.WriteDataLog(&DataRecord{})
	assert.True(t, IsCode(err, CodeCardFull))
	assert.False(t, s.DataLogOpen())
	assert.EqualValues(t, 0, s.DataLogEntries())
}

func TestWriteDataLogFailureIsNoCardWhenRemoved(t *testing.T) {
	s, dir := newTestStorage(t)
	require.NoError(t, s.NewDataLog(false))

	full, err := os.OpenFile("/dev/full", os.O_WRONLY, 0)
	if err != nil {
		t.Skip("/dev/full not available")
	}
	s.dataLog.Close()
	s.dataLog = full
	require.NoError(t, os.RemoveAll(dir))

	err = s.WriteDataLog(&DataRecord{})
	assert.True(t, IsCode(err, CodeNoCard))
	assert.False(t, s.DataLogOpen())
}

func TestNewDataLogHeaderFailureRemovesFile(t *testing.T) {
	s, dir := newTestStorage(t)
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	s.SetOpenFunc(func(name string, flag int, perm os.FileMode) (*os.File, error) {
		f, err := os.OpenFile(name, flag, perm)
		if err != nil {
			return nil, err
		}
		f.Close()
		return os.OpenFile("/dev/full", os.O_WRONLY, 0)
	})

	err := s.NewDataLog(true)
	assert.True(t, IsCode(err, CodeCardFull))
	assert.False(t, s.DataLogOpen())
	assert.Equal(t, "", s.DataLogName())
	_, err = os.Stat(filepath.Join(dir, "DATA_00.CSV"))
	assert.True(t, os.IsNotExist(err))

	// The name is free again once writes succeed.
	s.SetOpenFunc(os.OpenFile)
	require.NoError(t, s.NewDataLog(true))
	assert.Equal(t, "DATA_00.CSV", s.DataLogName())
}

func TestKeyValueRoundTrip(t *testing.T) {
	s, dir := newTestStorage(t)
	entries := []Entry{
		{"interval", "1000"},
		{"burstsize", "3"},
		{"lasercontinuous", "1"},
	}
	require.NoError(t, s.SaveKeyValue(SettingsFilename, entries))
	assert.Equal(t, "interval 1000\r\nburstsize 3\r\nlasercontinuous 1\r\n",
		readFile(t, filepath.Join(dir, SettingsFilename)))

	assert.Equal(t, map[string]string{
		"interval":        "1000",
		"burstsize":       "3",
		"lasercontinuous": "1",
	}, s.LoadKeyValue(SettingsFilename))
}

func TestLoadKeyValueMissingFile(t *testing.T) {
	s, _ := newTestStorage(t)
	assert.Nil(t, s.LoadKeyValue("MISSING.TXT"))
}

func TestParseKeyValueSkipsMalformedLines(t *testing.T) {
	values := ParseKeyValue("interval 500\r\nnovalue\r\n\r\n   \r\n  burstsize \t 4  \r\n")
	assert.Equal(t, map[string]string{
		"interval":  "500",
		"burstsize": "4",
	}, values)
}

func TestStatusLog(t *testing.T) {
	s, dir := newTestStorage(t)
	require.NoError(t, s.WriteStatus("Boot"))
	require.NoError(t, s.WriteStatus(""))
	require.NoError(t, s.WriteStatus("Start"))

	assert.Equal(t,
		"2020-06-01T12:30:00\tLog file created\r\n"+
			"2020-06-01T12:30:00\tBoot\r\n"+
			"\r\n\r\n"+
			"2020-06-01T12:30:00\tStart\r\n",
		readFile(t, filepath.Join(dir, StatusLogFilename)))
}

func TestStatusLogSkippedWhenNotMounted(t *testing.T) {
	dir, err := ioutil.TempDir("", "plt-storage")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s := New(NewDirMedium(dir))
	require.NoError(t, s.WriteStatus("Boot"))
	_, err = os.Stat(filepath.Join(dir, StatusLogFilename))
	assert.True(t, os.IsNotExist(err))
}

func TestFormat(t *testing.T) {
	s, dir := newTestStorage(t)
	require.NoError(t, s.NewDataLog(false))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	require.NoError(t, s.Format())
	assert.True(t, s.Initialized())
	assert.False(t, s.DataLogOpen())

	infos, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, StatusLogFilename, infos[0].Name())
	assert.Contains(t, readFile(t, filepath.Join(dir, StatusLogFilename)), "\tSD card formatted\r\n")
}
