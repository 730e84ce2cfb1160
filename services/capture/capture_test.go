// services/capture/capture_test.go
package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"fawtrap-go/services/detector"
	"fawtrap-go/services/envmon"
	"fawtrap-go/services/gate"
	"fawtrap-go/store"
	"fawtrap-go/types"
)

var t0 = time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

type fakeCamera struct {
	data []byte
	err  error
	hang time.Duration
}

func (f *fakeCamera) CaptureImage(ctx context.Context, quality uint8) ([]byte, types.ImageMeta, error) {
	if f.hang > 0 {
		select {
		case <-ctx.Done():
			return nil, types.ImageMeta{}, ctx.Err()
		case <-time.After(f.hang):
		}
	}
	if f.err != nil {
		return nil, types.ImageMeta{}, f.err
	}
	return f.data, types.ImageMeta{Width: 640, Height: 480, Quality: quality}, nil
}

type fakeMic struct {
	data []byte
	err  error
}

func (f *fakeMic) CaptureAudio(ctx context.Context, durationMS int, sampleRate uint32) ([]byte, types.AudioMeta, error) {
	if f.err != nil {
		return nil, types.AudioMeta{}, f.err
	}
	return f.data, types.AudioMeta{SampleRate: sampleRate, DurationMS: uint32(durationMS)}, nil
}

type fixedGate bool

func (g fixedGate) IsNight() bool { return bool(g) }

var captureCfg = types.CaptureConfig{
	ImageOnDetect:   true,
	AudioOnDetect:   true,
	ImageQuality:    10,
	AudioSampleRate: 16000,
	AudioDurationMS: 50,
	TimeoutMS:       100,
	StaleReadingMS:  60000,
}

func newRig(g gate.Gate, cam Camera, mic Microphone, beam *bool) (*Orchestrator, *store.Store) {
	st := store.New(10, store.NewArena(1<<20))
	env := envmon.New(&envmon.HostSensors{AirTempDeciC: 200},
		types.EnvConfig{ReadingIntervalMS: 60000, SoilDryRaw: 3000, SoilWetRaw: 1000},
		types.NightConfig{LDRMax: 4095}, nil)
	det := detector.New(100*time.Millisecond, 500*time.Millisecond, func() bool { return *beam })
	return New(det, g, env, st, cam, mic, captureCfg, nil), st
}

// trip drives the beam through a debounced break so the detector fires.
func trip(o *Orchestrator, beam *bool) (uint32, bool) {
	*beam = true
	o.OnTick(context.Background(), at(0))
	return o.OnTick(context.Background(), at(100))
}

func TestDetectionProducesFullEvent(t *testing.T) {
	beam := false
	cam := &fakeCamera{data: []byte("jpegjpeg")}
	mic := &fakeMic{data: []byte("pcm")}
	o, st := newRig(fixedGate(true), cam, mic, &beam)

	id, ok := trip(o, &beam)
	if !ok {
		t.Fatal("expected event")
	}
	ev, ok := st.Get(id)
	if !ok {
		t.Fatal("event not stored")
	}
	if ev.Flags != 0 {
		t.Errorf("flags = %b, want clean", ev.Flags)
	}
	if ev.Image.Kind != types.ArtifactImage || ev.Image.Size != 8 {
		t.Errorf("image ref = %+v", ev.Image)
	}
	if ev.Audio.Kind != types.ArtifactAudio || ev.Audio.Audio.SampleRate != 16000 {
		t.Errorf("audio ref = %+v", ev.Audio)
	}
	if got := st.Arena().Bytes(ev.Image.Slot); string(got) != "jpegjpeg" {
		t.Errorf("arena image bytes = %q", got)
	}
	if ev.TS != at(100).UnixMilli() {
		t.Errorf("event ts = %d, want detection ts", ev.TS)
	}
}

func TestDaytimeSignalDiscarded(t *testing.T) {
	beam := false
	o, st := newRig(fixedGate(false), &fakeCamera{}, &fakeMic{}, &beam)

	if _, ok := trip(o, &beam); ok {
		t.Fatal("daytime detection must not create an event")
	}
	if st.Len() != 0 {
		t.Errorf("store len = %d, want 0", st.Len())
	}
}

func TestFailedCaptureStillCreatesFlaggedEvent(t *testing.T) {
	beam := false
	cam := &fakeCamera{err: errors.New("sensor busy")}
	mic := &fakeMic{data: []byte("pcm")}
	o, st := newRig(fixedGate(true), cam, mic, &beam)

	id, ok := trip(o, &beam)
	if !ok {
		t.Fatal("partial record is more valuable than none")
	}
	ev, _ := st.Get(id)
	if ev.Flags&types.FlagImageFailed == 0 {
		t.Error("expected image-failed flag")
	}
	if ev.Image.Kind != types.ArtifactNone {
		t.Errorf("image kind = %v, want none", ev.Image.Kind)
	}
	if ev.Audio.Kind != types.ArtifactAudio {
		t.Error("audio capture should have survived")
	}
}

func TestHungCameraTimesOut(t *testing.T) {
	beam := false
	cam := &fakeCamera{hang: 5 * time.Second}
	mic := &fakeMic{data: []byte("pcm")}
	o, st := newRig(fixedGate(true), cam, mic, &beam)

	start := time.Now()
	id, ok := trip(o, &beam)
	if !ok {
		t.Fatal("expected event despite hung camera")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}
	ev, _ := st.Get(id)
	if ev.Flags&types.FlagImageFailed == 0 {
		t.Error("expected image-failed flag after timeout")
	}
}

func TestArenaExhaustionFlagsCapture(t *testing.T) {
	beam := false
	cam := &fakeCamera{data: make([]byte, 4096)}
	mic := &fakeMic{data: []byte("pcm")}

	st := store.New(10, store.NewArena(16)) // too small for the image
	env := envmon.New(&envmon.HostSensors{},
		types.EnvConfig{ReadingIntervalMS: 60000, SoilDryRaw: 3000, SoilWetRaw: 1000},
		types.NightConfig{LDRMax: 4095}, nil)
	det := detector.New(100*time.Millisecond, 500*time.Millisecond, func() bool { return beam })
	o := New(det, fixedGate(true), env, st, cam, mic, captureCfg, nil)

	id, ok := trip(o, &beam)
	if !ok {
		t.Fatal("expected event")
	}
	ev, _ := st.Get(id)
	if ev.Flags&types.FlagImageFailed == 0 {
		t.Error("arena exhaustion should flag the capture")
	}
}

func TestTriggerReadingSnapshotAttached(t *testing.T) {
	beam := false
	o, st := newRig(fixedGate(true), &fakeCamera{data: []byte("x")}, &fakeMic{data: []byte("y")}, &beam)

	id, ok := trip(o, &beam)
	if !ok {
		t.Fatal("expected event")
	}
	ev, _ := st.Get(id)
	if ev.Trigger.TS == 0 {
		t.Error("trigger reading not attached")
	}
	if ev.Trigger.AirTempDeciC != 200 {
		t.Errorf("trigger air temp = %d, want 200", ev.Trigger.AirTempDeciC)
	}
	if o.LastDetectTS() != ev.TS {
		t.Errorf("last detect ts = %d, want %d", o.LastDetectTS(), ev.TS)
	}
}
