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

package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/TheCacophonyProject/go-config"
	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
	"go.bug.st/serial"
	"golang.org/x/sys/unix"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"

	"github.com/TheCacophonyProject/plt-controller/console"
	"github.com/TheCacophonyProject/plt-controller/deployment"
	"github.com/TheCacophonyProject/plt-controller/events"
	"github.com/TheCacophonyProject/plt-controller/hardware"
	"github.com/TheCacophonyProject/plt-controller/runcontrol"
	"github.com/TheCacophonyProject/plt-controller/storage"
)

const watchdogInterval = 5 * time.Second

var version = "<not set>"

type Args struct {
	ConfigFile string `arg:"-c,--config" help:"path to configuration file"`
	ConfigDir  string `arg:"--config-dir" help:"path to the device configuration directory"`
	Timestamps bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
	NoConsole  bool   `arg:"--no-console" help:"don't serve the console on stdin"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/pltd.yaml"
	args.ConfigDir = config.DefaultConfigDir
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()
	if !args.Timestamps {
		log.SetFlags(0)
	}

	log.Printf("version: %s", version)
	conf, err := ParseConfigFile(args.ConfigFile)
	if err != nil {
		return err
	}
	logConfig(conf)

	log.Print("host initialisation")
	if _, err := host.Init(); err != nil {
		return err
	}
	hw, err := openHardware(conf)
	if err != nil {
		return err
	}

	controller := runcontrol.New(conf.Control, hw, storage.New(openMedium(conf.Storage)), events.NewReporter(conf.Events))
	if dep, err := deployment.NewConfig(args.ConfigDir); err != nil {
		log.Printf("no deployment config, running without it: %v", err)
	} else {
		controller.SetDeployment(dep)
	}
	var lastNotify time.Time
	controller.SetNotify(func() {
		if time.Since(lastNotify) >= watchdogInterval {
			daemon.SdNotify(false, "WATCHDOG=1")
			lastNotify = time.Now()
		}
	})

	controller.Boot()
	daemon.SdNotify(false, "READY=1")

	ctx, cancel := signalContext()
	defer cancel()

	if err := startService(ctx, controller); err != nil {
		return err
	}
	log.Print("started D-Bus service")

	if conf.Serial.Port != "" {
		port, err := serial.Open(conf.Serial.Port, &serial.Mode{
			BaudRate: conf.Serial.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			log.Printf("serial console unavailable: %v", err)
		} else {
			defer port.Close()
			log.Printf("console on %s", conf.Serial.Port)
			go serveConsole(ctx, port, port, controller, conf.Serial.Echo)
		}
	}
	if !args.NoConsole && isTerminal(os.Stdin) {
		go serveConsole(ctx, os.Stdin, os.Stdout, controller, false)
	}

	if err := controller.Run(ctx); err != context.Canceled {
		return err
	}
	log.Print("stopped")
	return nil
}

func logConfig(conf *Config) {
	if conf.Storage.Dir != "" {
		log.Printf("storage dir: %s", conf.Storage.Dir)
	} else {
		log.Printf("storage: %s on %s (%s)", conf.Storage.Device, conf.Storage.MountPoint, conf.Storage.FSType)
	}
	log.Printf("camera pins: %+v", conf.Camera)
	log.Printf("laser pin: %s", conf.LaserPin)
	log.Printf("switch pin: %s", conf.SwitchPin)
	log.Printf("lights: %+v", conf.Lights)
	log.Printf("water density: %.1f", conf.WaterDensity)
	log.Printf("control: %+v", conf.Control)
}

func openMedium(conf StorageConfig) storage.Medium {
	if conf.Dir != "" {
		return storage.NewDirMedium(conf.Dir)
	}
	return storage.NewCardMedium(conf.Device, conf.MountPoint, conf.FSType)
}

// openHardware opens the peripherals. The camera and laser are required;
// anything else that fails to open is left out and reported at boot.
func openHardware(conf *Config) (runcontrol.Hardware, error) {
	var hw runcontrol.Hardware

	camera, err := hardware.NewCamera(conf.Camera)
	if err != nil {
		return hw, err
	}
	hw.Camera = camera
	laser, err := hardware.NewLaser(conf.LaserPin)
	if err != nil {
		return hw, err
	}
	hw.Laser = laser

	if lights, err := hardware.NewLights(conf.Lights); err != nil {
		log.Printf("lights unavailable: %v", err)
	} else {
		hw.Lights = lights
	}
	if conf.SwitchPin != "" {
		if sw, err := hardware.NewSwitch(conf.SwitchPin); err != nil {
			log.Printf("switch unavailable: %v", err)
		} else {
			hw.Switch = sw
		}
	}
	hw.Clock = hardware.NewClock(conf.RTCDevice)

	bus, err := i2creg.Open(conf.I2CBus)
	if err != nil {
		log.Printf("I2C bus unavailable, no sensors or battery monitors: %v", err)
		return hw, nil
	}
	batteries := hardware.NewBatteries(bus)
	hw.ControllerBattery = batteries.Controller
	hw.MainBattery = batteries.Main
	hw.Sensors = hardware.NewSensors(bus, conf.WaterDensity)
	return hw, nil
}

func serveConsole(ctx context.Context, r io.Reader, w io.Writer, runner console.Runner, echo bool) {
	err := console.New(r, w, runner, version, echo).Serve(ctx)
	if err != nil && err != context.Canceled {
		log.Printf("console stopped: %v", err)
	}
}

func isTerminal(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			log.Printf("received %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
