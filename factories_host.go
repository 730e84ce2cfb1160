//go:build !tinygo

package main

import (
	"context"
	"time"

	"fawtrap-go/services/envmon"
	"fawtrap-go/transfer"
	"fawtrap-go/types"

	// Registers the ws and loopback transports.
	_ "fawtrap-go/transport"
)

// Host build: no trap hardware attached. Sensors are settable fakes, the beam
// stays clear, capture hardware returns canned artifacts and the peer link is
// a websocket endpoint. The simulator in cmd/trapsim is the richer host entry
// point; this keeps the firmware binary runnable for smoke checks.
func buildPlatform(cfg *types.TrapConfig) (*platform, error) {
	sensors := &envmon.HostSensors{
		AirTempDeciC:   215,
		AirHumidityPct: 60,
		SoilTempDeciC:  180,
		SoilMoisture:   2000,
		Light:          100,
	}
	tr, err := transfer.NewTransport("ws", cfg.Link)
	if err != nil {
		return nil, err
	}
	return &platform{
		Sensors: sensors,
		Beam:    func() bool { return false },
		ReadLDR: sensors.ReadLightRaw,
		Hour:    func() int { return time.Now().Hour() },
		Camera:  syntheticCamera{},
		Mic:     syntheticMic{},

		Transport: tr,
		Render: func(l1, l2 string) {
			println(l1)
			println(l2)
		},
	}, nil
}

// syntheticCamera fabricates a small JPEG-shaped payload.
type syntheticCamera struct{}

func (syntheticCamera) CaptureImage(ctx context.Context, quality uint8) ([]byte, types.ImageMeta, error) {
	data := make([]byte, 2048)
	data[0], data[1] = 0xFF, 0xD8
	for i := 2; i < len(data)-2; i++ {
		data[i] = byte(i * 31)
	}
	data[len(data)-2], data[len(data)-1] = 0xFF, 0xD9
	return data, types.ImageMeta{Width: 640, Height: 480, Quality: quality}, nil
}

type syntheticMic struct{}

func (syntheticMic) CaptureAudio(ctx context.Context, durationMS int, sampleRate uint32) ([]byte, types.AudioMeta, error) {
	n := int(sampleRate) * durationMS / 1000 * 2 // 16-bit mono
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data, types.AudioMeta{SampleRate: sampleRate, DurationMS: uint32(durationMS)}, nil
}
