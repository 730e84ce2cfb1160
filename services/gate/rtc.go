// services/gate/rtc.go
package gate

import (
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ds3231"
)

// RTC adapts a DS3231 on the I2C bus to the Clock strategy's hour source.
// A read failure returns the last good hour, so a transient bus error does
// not flip the gate mid-window.
type RTC struct {
	mu       sync.Mutex
	dev      ds3231.Device
	lastHour int
}

func NewRTC(bus drivers.I2C) *RTC {
	r := &RTC{dev: ds3231.New(bus)}
	r.dev.Configure()
	return r
}

func (r *RTC) Hour() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.dev.ReadTime()
	if err != nil {
		return r.lastHour
	}
	r.lastHour = t.Hour()
	return r.lastHour
}
