//go:build tinygo

package main

import (
	"context"
	"machine"
	"time"

	"fawtrap-go/errcode"
	"fawtrap-go/services/detector"
	"fawtrap-go/services/envmon"
	"fawtrap-go/services/gate"
	"fawtrap-go/transfer"
	"fawtrap-go/types"

	// Registers the uart and loopback transports.
	_ "fawtrap-go/transport"
)

// Device build. The IR receiver output idles low with the beam present and
// goes high when the beam is interrupted.
func buildPlatform(cfg *types.TrapConfig) (*platform, error) {
	emitter := machine.Pin(cfg.Pins.IRLed)
	emitter.Configure(machine.PinConfig{Mode: machine.PinOutput})
	emitter.High()

	beam := machine.Pin(cfg.Pins.IRReceiver)
	beam.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})

	button := machine.Pin(cfg.Pins.Button)
	button.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	i2c := machine.I2C0
	i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.Pin(cfg.Pins.I2CSDA),
		SCL:       machine.Pin(cfg.Pins.I2CSCL),
	})
	rtc := gate.NewRTC(i2c)

	// TODO: hook up the DS18B20 soil probe once the onewire bus lands.
	sensors := envmon.NewHWSensors(cfg.Pins, nil)

	tr, err := transfer.NewTransport("uart", cfg.Link)
	if err != nil {
		return nil, err
	}

	return &platform{
		Sensors: sensors,
		Beam:    beam.Get,
		AttachBeamIRQ: func(det *detector.Detector) {
			beam.SetInterrupt(machine.PinToggle, func(p machine.Pin) {
				det.OnEdge(p.Get(), time.Now())
			})
		},
		Button:  func() bool { return !button.Get() },
		ReadLDR: sensors.ReadLightRaw,
		Hour:    rtc.Hour,
		Camera:  nullCamera{},
		Mic:     nullMic{},

		Transport: tr,
		Render: func(l1, l2 string) {
			println(l1)
			println(l2)
		},
	}, nil
}

// nullCamera stands in until the OV2640 driver is wired; every detection is
// recorded as a flagged partial event in the meantime.
type nullCamera struct{}

func (nullCamera) CaptureImage(context.Context, uint8) ([]byte, types.ImageMeta, error) {
	return nil, types.ImageMeta{}, errcode.SensorUnavailable
}

type nullMic struct{}

func (nullMic) CaptureAudio(context.Context, int, uint32) ([]byte, types.AudioMeta, error) {
	return nil, types.AudioMeta{}, errcode.SensorUnavailable
}
