package main

import (
	"context"
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
)

// deviceName selects the embedded config. Override per build with
// -ldflags "-X main.deviceName=...".
var deviceName = "FAWTrap_001"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot", deviceName)

	cfg, err := config.Load(deviceName)
	if err != nil {
		// Refuse to run with a broken config.
		println("fatal:", err.Error())
		return
	}

	ctx := context.Background()
	b := bus.NewBus(16)
	config.NewConfigService().Publish(cfg, b.NewConnection("config"))

	p, err := buildPlatform(cfg)
	if err != nil {
		println("fatal:", err.Error())
		return
	}

	env := envmon.New(p.Sensors, cfg.Env, cfg.Night, b.NewConnection("envmon"))
	go env.Run(ctx)

	det := detector.New(
		time.Duration(cfg.Detection.DebounceMS)*time.Millisecond,
		time.Duration(cfg.Detection.CooldownMS)*time.Millisecond,
		p.Beam)
	if p.AttachBeamIRQ != nil {
		p.AttachBeamIRQ(det)
	}

	st := store.New(cfg.Store.MaxEvents, store.NewArena(cfg.Store.ArenaBytes))
	g := gate.FromConfig(cfg.Night, p.ReadLDR, p.Hour)
	orch := capture.New(det, g, env, st, p.Camera, p.Mic, cfg.Capture,
		b.NewConnection("capture"))

	eng := transfer.NewEngine(st, cfg.Link, p.Transport, b.NewConnection("transfer"))
	go eng.Run(ctx)

	disp := display.New(p.Render, 5*time.Second)
	disp.Start(ctx, b.NewConnection("display"))

	var button *detector.Button
	if p.Button != nil {
		button = detector.NewButton(
			time.Duration(cfg.Detection.ButtonDebounceMS)*time.Millisecond, p.Button)
	}
	ctl := controller.New(orch, env, st, button,
		controller.Config{TickInterval: 10 * time.Millisecond},
		b.NewConnection("controller"))
	ctl.Run(ctx)
}
