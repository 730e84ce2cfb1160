// cmd/trapsim/main.go
//
// trapsim runs the full trap core on a host machine: scripted beam breaks,
// fake sensors with a little drift, synthetic camera/microphone and the
// transfer protocol served over websocket. Point trapctl at it.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fawtrap-go/bus"
	"fawtrap-go/controller"
	"fawtrap-go/services/capture"
	"fawtrap-go/services/config"
	"fawtrap-go/services/detector"
	"fawtrap-go/services/display"
	"fawtrap-go/services/envmon"
	"fawtrap-go/services/gate"
	"fawtrap-go/store"
	"fawtrap-go/transfer"
	"fawtrap-go/transport"
	"fawtrap-go/types"
)

func main() {
	var (
		device   = flag.String("device", "FAWTrap_001", "embedded config to load")
		addr     = flag.String("addr", ":9444", "websocket listen address")
		interval = flag.Duration("interval", 15*time.Second, "time between scripted beam breaks")
		daytime  = flag.Bool("daytime", false, "keep the gate in daytime (detections discarded)")
	)
	flag.Parse()

	cfg, err := config.Load(*device)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cfg.Link.Addr = *addr

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewBus(16)
	config.NewConfigService().Publish(cfg, b.NewConnection("config"))

	sensors := &envmon.HostSensors{
		AirTempDeciC:   224,
		AirHumidityPct: 71,
		SoilTempDeciC:  196,
		SoilMoisture:   2100,
		Light:          80,
	}
	go drift(ctx, sensors)

	env := envmon.New(sensors, cfg.Env, cfg.Night, b.NewConnection("envmon"))
	go env.Run(ctx)

	// Beam breaks for 300ms at the scripted cadence.
	start := time.Now()
	beam := func() bool {
		return time.Since(start)%*interval < 300*time.Millisecond
	}
	det := detector.New(
		time.Duration(cfg.Detection.DebounceMS)*time.Millisecond,
		time.Duration(cfg.Detection.CooldownMS)*time.Millisecond,
		beam)

	var g gate.Gate = gate.AlwaysNight{}
	if *daytime {
		g = daytimeGate{}
	}

	st := store.New(cfg.Store.MaxEvents, store.NewArena(cfg.Store.ArenaBytes))
	orch := capture.New(det, g, env, st, simCamera{}, simMic{}, cfg.Capture,
		b.NewConnection("capture"))

	ws, err := transport.NewWS(cfg.Link.Addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "listen:", err)
		os.Exit(1)
	}
	fmt.Println("trapsim: serving ws://" + ws.Addr() + "/link")
	eng := transfer.NewEngine(st, cfg.Link, ws, b.NewConnection("transfer"))
	go eng.Run(ctx)

	disp := display.New(func(l1, l2 string) {
		fmt.Printf("[display] %-20s | %s\n", l1, l2)
	}, 10*time.Second)
	disp.Start(ctx, b.NewConnection("display"))

	ctl := controller.New(orch, env, st, nil,
		controller.Config{TickInterval: 10 * time.Millisecond},
		b.NewConnection("controller"))
	ctl.Run(ctx)
}

type daytimeGate struct{}

func (daytimeGate) IsNight() bool { return false }

// drift nudges the fake sensors so consecutive readings differ.
func drift(ctx context.Context, s *envmon.HostSensors) {
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Set(func(h *envmon.HostSensors) {
				h.AirTempDeciC += int16(rand.Intn(7) - 3)
				h.SoilMoisture += uint16(rand.Intn(21)) - 10
				h.Light += uint16(rand.Intn(11)) - 5
			})
		}
	}
}

type simCamera struct{}

func (simCamera) CaptureImage(ctx context.Context, quality uint8) ([]byte, types.ImageMeta, error) {
	data := make([]byte, 3000)
	data[0], data[1] = 0xFF, 0xD8
	rand.Read(data[2 : len(data)-2])
	data[len(data)-2], data[len(data)-1] = 0xFF, 0xD9
	return data, types.ImageMeta{Width: 640, Height: 480, Quality: quality}, nil
}

type simMic struct{}

func (simMic) CaptureAudio(ctx context.Context, durationMS int, sampleRate uint32) ([]byte, types.AudioMeta, error) {
	n := int(sampleRate) * durationMS / 1000 * 2
	data := make([]byte, n)
	rand.Read(data)
	return data, types.AudioMeta{SampleRate: sampleRate, DurationMS: uint32(durationMS)}, nil
}
