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

package runcontrol

import (
	"errors"
	"log"

	"github.com/TheCacophonyProject/plt-controller/events"
	"github.com/TheCacophonyProject/plt-controller/status"
	"github.com/TheCacophonyProject/plt-controller/storage"
)

// batteryLatch remembers which thresholds a battery has crossed. It is
// only cleared by Reset.
type batteryLatch struct {
	low      bool
	critical bool
}

// CheckBatteries compares both batteries against the warning and
// critical levels. A low battery is a hardware warning. A critically low
// battery stops any run and puts the device into errors.
func (c *Controller) CheckBatteries() {
	c.checkBattery(c.hw.MainBattery, "Main", &c.mainBattery)
	c.checkBattery(c.hw.ControllerBattery, "Controller", &c.controllerBattery)
}

func (c *Controller) checkBattery(b BatteryMonitor, label string, latch *batteryLatch) {
	if b == nil || !b.Present() || latch.critical {
		return
	}
	percent, err := b.Percent()
	if err != nil {
		c.limiter.KeyPrintf("battery-"+label, "battery check skipped: %v", err)
		return
	}
	switch {
	case percent < BatteryErrorPercent:
		latch.critical = true
		msg := label + " battery critically low"
		log.Printf("%s (%.1f%%)", msg, percent)
		c.writeStatus(msg)
		if c.status.Running() {
			c.stopRun()
		}
		c.status.SetHardware(status.HardwareErrors)
		c.status.SetSoftware(status.SoftwareErrors)
		c.report(events.BatteryCritical, map[string]interface{}{
			"battery": label,
			"percent": percent,
		})

	case percent < BatteryWarnPercent && !latch.low:
		latch.low = true
		msg := label + " battery low"
		log.Printf("%s (%.1f%%)", msg, percent)
		c.writeStatus(msg)
		if c.status.Hardware() != status.HardwareErrors {
			c.status.SetHardware(status.HardwareWarnings)
		}
	}
}

// escalateStorage puts the device into errors when the card has gone.
// Other storage failures are left to the caller to report.
func (c *Controller) escalateStorage(err error) {
	if !storage.IsCode(err, storage.CodeNoCard) {
		var serr *storage.Error
		if !errors.As(err, &serr) || c.storage.CardPresent() {
			return
		}
	}
	c.setErrors(true, err)
}

// UpdateStorageStatus updates the status after a failed file command. A
// missing card is a hardware and software error; a bad format or a full
// card is a software error.
func (c *Controller) UpdateStorageStatus(err error) {
	switch {
	case storage.IsCode(err, storage.CodeNoCard):
		c.setErrors(true, err)
	case storage.IsCode(err, storage.CodeBadFormat), storage.IsCode(err, storage.CodeCardFull):
		c.setErrors(false, err)
	case !c.storage.CardPresent():
		c.setErrors(true, err)
	}
}

// setErrors stops any run before moving the status to errors, so the
// device is never running with hardware errors.
func (c *Controller) setErrors(hardware bool, err error) {
	if c.status.Running() {
		c.stopRun()
	}
	if hardware {
		c.status.SetHardware(status.HardwareErrors)
	}
	c.status.SetSoftware(status.SoftwareErrors)
	c.report(events.StorageError, map[string]interface{}{"error": storageMessage(err)})
}

// storageMessage is the operator facing text for err.
func storageMessage(err error) string {
	var serr *storage.Error
	if errors.As(err, &serr) {
		return serr.Message()
	}
	return err.Error()
}
