// services/envmon/sensors_host.go
//go:build !tinygo

package envmon

import "sync"

// HostSensors implements Sensors for host-side runs and tests. Values are
// settable; any channel can be forced to fail to exercise the stale fallback.
type HostSensors struct {
	mu sync.Mutex

	AirTempDeciC   int16
	AirHumidityPct uint8
	SoilTempDeciC  int16
	SoilMoisture   uint16
	Light          uint16

	FailAir      error
	FailSoilTemp error
	FailMoisture error
	FailLight    error
}

func (h *HostSensors) Set(f func(*HostSensors)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f(h)
}

func (h *HostSensors) ReadAir() (int16, uint8, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailAir != nil {
		return 0, 0, h.FailAir
	}
	return h.AirTempDeciC, h.AirHumidityPct, nil
}

func (h *HostSensors) ReadSoilTemp() (int16, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailSoilTemp != nil {
		return 0, h.FailSoilTemp
	}
	return h.SoilTempDeciC, nil
}

func (h *HostSensors) ReadSoilMoistureRaw() (uint16, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailMoisture != nil {
		return 0, h.FailMoisture
	}
	return h.SoilMoisture, nil
}

func (h *HostSensors) ReadLightRaw() (uint16, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailLight != nil {
		return 0, h.FailLight
	}
	return h.Light, nil
}
