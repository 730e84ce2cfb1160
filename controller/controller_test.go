// controller/controller_test.go
package controller

import (
	"context"
	"testing"
	"time"

	"fawtrap-go/bus"
	"fawtrap-go/services/capture"
	"fawtrap-go/services/detector"
	"fawtrap-go/services/envmon"
	"fawtrap-go/services/gate"
	"fawtrap-go/store"
	"fawtrap-go/types"
)

var t0 = time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

type stubCamera struct{}

func (stubCamera) CaptureImage(ctx context.Context, quality uint8) ([]byte, types.ImageMeta, error) {
	return []byte("img"), types.ImageMeta{Width: 640, Height: 480, Quality: quality}, nil
}

type stubMic struct{}

func (stubMic) CaptureAudio(ctx context.Context, durationMS int, sampleRate uint32) ([]byte, types.AudioMeta, error) {
	return []byte("pcm"), types.AudioMeta{SampleRate: sampleRate, DurationMS: uint32(durationMS)}, nil
}

type rig struct {
	ctl    *Controller
	st     *store.Store
	beam   bool
	button bool
}

func newRig(b *bus.Bus) *rig {
	r := &rig{st: store.New(10, store.NewArena(1 << 20))}
	var conn *bus.Connection
	if b != nil {
		conn = b.NewConnection("controller")
	}
	env := envmon.New(&envmon.HostSensors{AirTempDeciC: 231},
		types.EnvConfig{ReadingIntervalMS: 60000, SoilDryRaw: 3000, SoilWetRaw: 1000},
		types.NightConfig{LDRMax: 4095}, nil)
	det := detector.New(100*time.Millisecond, 500*time.Millisecond, func() bool { return r.beam })
	orch := capture.New(det, gate.AlwaysNight{}, env, r.st, stubCamera{}, stubMic{},
		types.CaptureConfig{
			ImageOnDetect:   true,
			AudioOnDetect:   true,
			ImageQuality:    10,
			AudioSampleRate: 16000,
			AudioDurationMS: 50,
			TimeoutMS:       100,
			StaleReadingMS:  60000,
		}, nil)
	button := detector.NewButton(50*time.Millisecond, func() bool { return r.button })
	r.ctl = New(orch, env, r.st, button, Config{TickInterval: 10 * time.Millisecond}, conn)
	return r
}

func TestTickDrivesDetectionIntoStore(t *testing.T) {
	r := newRig(nil)
	ctx := context.Background()

	r.beam = true
	r.ctl.Tick(ctx, at(0))
	r.ctl.Tick(ctx, at(100))

	if r.st.Len() != 1 {
		t.Fatalf("store len = %d, want 1 after a debounced break", r.st.Len())
	}
	snap := r.ctl.Snapshot(at(200))
	if snap.EventCount != 1 || snap.UnsentCount != 1 {
		t.Errorf("snapshot counts = %d/%d, want 1/1", snap.EventCount, snap.UnsentCount)
	}
	if snap.LastDetectTS != at(100).UnixMilli() {
		t.Errorf("last detect = %d, want %d", snap.LastDetectTS, at(100).UnixMilli())
	}
	if snap.LastReading.AirTempDeciC != 231 {
		t.Errorf("snapshot reading = %+v", snap.LastReading)
	}
}

func TestResetButtonClearsStore(t *testing.T) {
	r := newRig(nil)
	ctx := context.Background()

	r.beam = true
	r.ctl.Tick(ctx, at(0))
	r.ctl.Tick(ctx, at(100))
	r.beam = false
	if r.st.Len() != 1 {
		t.Fatal("expected one stored event")
	}

	r.button = true
	r.ctl.Tick(ctx, at(700))
	r.ctl.Tick(ctx, at(760)) // held past the button debounce

	if r.st.Len() != 0 {
		t.Errorf("store len = %d, want 0 after reset", r.st.Len())
	}
	if snap := r.ctl.Snapshot(at(800)); snap.EventCount != 0 {
		t.Errorf("snapshot count = %d after reset", snap.EventCount)
	}
}

func TestStatusPublishedRetainedOnChange(t *testing.T) {
	b := bus.NewBus(16)
	r := newRig(b)
	ctx := context.Background()

	r.beam = true
	r.ctl.Tick(ctx, at(0))
	r.ctl.Tick(ctx, at(100))

	// A late subscriber sees the latest snapshot via retention.
	sub := b.NewConnection("probe").Subscribe(bus.T("trap", "status"))
	select {
	case msg := <-sub.Channel():
		st, ok := msg.Payload.(types.TrapStatus)
		if !ok || st.EventCount != 1 {
			t.Errorf("retained status = %+v", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no retained trap/status")
	}
}
