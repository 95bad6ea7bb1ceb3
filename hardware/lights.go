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
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/experimental/devices/nrzled"

	"github.com/TheCacophonyProject/plt-controller/status"
)

const lightsTestPause = 50 * time.Millisecond

// LightsConfig names the SPI port driving the neopixels and the optional
// board LED pins.
type LightsConfig struct {
	SPIPort    string `yaml:"spi-port"`
	BoardRed   string `yaml:"board-red"`
	BoardGreen string `yaml:"board-green"`
}

type pixelWriter interface {
	Write(pixels []byte) (int, error)
}

// Lights drives the three status neopixels.
type Lights struct {
	strip  pixelWriter
	board  []outputPin
	pixels [status.NumberOfLights]status.Colour
	sleep  func(time.Duration)
}

func NewLights(conf LightsConfig) (*Lights, error) {
	port, err := spireg.Open(conf.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port for lights: %v", err)
	}
	strip, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: status.NumberOfLights,
		Channels:  3,
		Freq:      800 * physic.KiloHertz,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start neopixels: %v", err)
	}
	var board []outputPin
	for _, name := range []string{conf.BoardRed, conf.BoardGreen} {
		if name == "" {
			continue
		}
		pin, err := openOutput(name)
		if err != nil {
			return nil, err
		}
		board = append(board, pin)
	}
	return newLights(strip, board...), nil
}

func newLights(strip pixelWriter, board ...outputPin) *Lights {
	return &Lights{
		strip: strip,
		board: board,
		sleep: time.Sleep,
	}
}

// Show displays status lights.
func (l *Lights) Show(lights status.Lights) error {
	l.pixels = lights
	return l.flush()
}

func (l *Lights) setPixel(i int, c status.Colour) error {
	l.pixels[i] = c
	return l.flush()
}

func (l *Lights) flush() error {
	buf := make([]byte, 0, len(l.pixels)*3)
	for _, c := range l.pixels {
		buf = append(buf, c.R, c.G, c.B)
	}
	_, err := l.strip.Write(buf)
	return err
}

func (l *Lights) setBoard(on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	for _, pin := range l.board {
		if err := pin.Out(level); err != nil {
			return err
		}
	}
	return nil
}

// TestCycle sweeps red, green, blue and white across the lights then
// turns them off. The board LEDs flash alongside.
func (l *Lights) TestCycle() error {
	steps := []struct {
		colour status.Colour
		board  bool
	}{
		{status.Red, true},
		{status.Green, false},
		{status.Blue, true},
		{status.White, false},
		{status.Black, true},
	}
	for _, step := range steps {
		if err := l.setBoard(step.board); err != nil {
			return err
		}
		for i := range l.pixels {
			if err := l.setPixel(i, step.colour); err != nil {
				return err
			}
			l.sleep(lightsTestPause)
		}
	}
	return l.setBoard(false)
}
