// services/envmon/envmon.go
package envmon

import (
	"context"
	"sync"
	"time"

	"fawtrap-go/bus"
	"fawtrap-go/services/gate"
	"fawtrap-go/types"
	"fawtrap-go/x/mathx"
)

var (
	topicReading = bus.T("env", "reading")
	topicState   = bus.T("envmon", "state")
)

// Sensors is the hardware port the monitor samples. Any read may fail
// transiently (sensor not ready); the monitor falls back to the last-known
// value and marks the reading stale.
type Sensors interface {
	ReadAir() (deciC int16, humidityPct uint8, err error)
	ReadSoilTemp() (deciC int16, err error)
	ReadSoilMoistureRaw() (uint16, error)
	ReadLightRaw() (uint16, error)
}

// Service samples the environment on a fixed interval and keeps the latest
// reading available for the capture orchestrator and the display.
type Service struct {
	sensors Sensors
	env     types.EnvConfig
	night   types.NightConfig
	conn    *bus.Connection

	mu       sync.Mutex
	last     types.Reading
	haveLast bool
}

func New(sensors Sensors, env types.EnvConfig, night types.NightConfig, conn *bus.Connection) *Service {
	return &Service{sensors: sensors, env: env, night: night, conn: conn}
}

// Run samples periodically until ctx is cancelled. First sample is immediate.
func (s *Service) Run(ctx context.Context) {
	interval := time.Duration(s.env.ReadingIntervalMS) * time.Millisecond
	tick := time.NewTicker(interval)
	defer tick.Stop()

	s.sampleAndPublish(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			s.sampleAndPublish(now)
		}
	}
}

// Latest returns the most recent reading, if any.
func (s *Service) Latest() (types.Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.haveLast
}

// Sample reads every sensor now. Failed sensors reuse the last-known field
// and mark the reading stale; a reading is always produced.
func (s *Service) Sample(now time.Time) types.Reading {
	s.mu.Lock()
	prev, havePrev := s.last, s.haveLast
	s.mu.Unlock()

	r := types.Reading{TS: now.UnixMilli()}

	if deciC, hum, err := s.sensors.ReadAir(); err == nil {
		r.AirTempDeciC = deciC
		r.AirHumidityPct = hum
	} else if havePrev {
		r.AirTempDeciC = prev.AirTempDeciC
		r.AirHumidityPct = prev.AirHumidityPct
		r.Stale = true
	} else {
		r.Stale = true
	}

	if deciC, err := s.sensors.ReadSoilTemp(); err == nil {
		r.SoilTempDeciC = deciC
	} else if havePrev {
		r.SoilTempDeciC = prev.SoilTempDeciC
		r.Stale = true
	} else {
		r.Stale = true
	}

	if raw, err := s.sensors.ReadSoilMoistureRaw(); err == nil {
		r.SoilMoisturePct = soilPct(raw, s.env.SoilDryRaw, s.env.SoilWetRaw)
	} else if havePrev {
		r.SoilMoisturePct = prev.SoilMoisturePct
		r.Stale = true
	} else {
		r.Stale = true
	}

	if raw, err := s.sensors.ReadLightRaw(); err == nil {
		r.LightPct = gate.ScaleLight(raw, s.night.LDRMin, s.night.LDRMax)
	} else if havePrev {
		r.LightPct = prev.LightPct
		r.Stale = true
	} else {
		r.Stale = true
	}

	s.mu.Lock()
	s.last = r
	s.haveLast = true
	s.mu.Unlock()
	return r
}

func (s *Service) sampleAndPublish(now time.Time) {
	r := s.Sample(now)
	if s.conn == nil {
		return
	}
	s.conn.Publish(s.conn.NewMessage(topicReading, r, true))
	level, status := "ready", ""
	if r.Stale {
		level, status = "degraded", "sensor_unavailable"
	}
	s.conn.Publish(s.conn.NewMessage(topicState, types.ServiceState{
		Level: level, Status: status, TS: now.UnixMilli(),
	}, true))
}

// soilPct converts a capacitive probe reading to 0..100% moisture.
// The raw value falls as moisture rises (dry air reads high).
func soilPct(raw, dry, wet uint16) uint8 {
	raw = mathx.Clamp(raw, wet, dry)
	return uint8(mathx.MapU16Inv(raw, wet, dry, 0, 100))
}
