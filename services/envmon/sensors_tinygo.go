// services/envmon/sensors_tinygo.go
//go:build tinygo

package envmon

import (
	"machine"

	"tinygo.org/x/drivers/dht"

	"fawtrap-go/errcode"
	"fawtrap-go/types"
)

// HWSensors reads the trap's sensor complement on the device itself:
// DHT11 air temp/humidity, ADC soil-moisture probe and LDR. Soil temperature
// comes through an injected reader so the one-wire hookup stays with the
// board setup code.
type HWSensors struct {
	air      dht.DummyDevice
	soilTemp func() (int16, error)
	moisture machine.ADC
	ldr      machine.ADC
}

func NewHWSensors(pins types.PinConfig, soilTemp func() (int16, error)) *HWSensors {
	machine.InitADC()
	m := machine.ADC{Pin: machine.Pin(pins.SoilMoisture)}
	m.Configure(machine.ADCConfig{})
	l := machine.ADC{Pin: machine.Pin(pins.LDR)}
	l.Configure(machine.ADCConfig{})
	return &HWSensors{
		air:      dht.New(machine.Pin(pins.AirSensor), dht.DHT11),
		soilTemp: soilTemp,
		moisture: m,
		ldr:      l,
	}
}

func (h *HWSensors) ReadAir() (int16, uint8, error) {
	if err := h.air.ReadMeasurements(); err != nil {
		return 0, 0, &errcode.E{C: errcode.SensorUnavailable, Op: "envmon.air", Err: err}
	}
	t, err := h.air.Temperature()
	if err != nil {
		return 0, 0, &errcode.E{C: errcode.SensorUnavailable, Op: "envmon.air", Err: err}
	}
	hum, err := h.air.Humidity()
	if err != nil {
		return 0, 0, &errcode.E{C: errcode.SensorUnavailable, Op: "envmon.air", Err: err}
	}
	return t, uint8(hum / 10), nil
}

func (h *HWSensors) ReadSoilTemp() (int16, error) {
	if h.soilTemp == nil {
		return 0, errcode.SensorUnavailable
	}
	return h.soilTemp()
}

// ADC reads are 16-bit left-aligned; shift down to the probe's 12-bit range.
func (h *HWSensors) ReadSoilMoistureRaw() (uint16, error) {
	return h.moisture.Get() >> 4, nil
}

func (h *HWSensors) ReadLightRaw() (uint16, error) {
	return h.ldr.Get() >> 4, nil
}
