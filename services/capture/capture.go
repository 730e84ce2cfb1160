// services/capture/capture.go
package capture

import (
	"context"
	"time"

	"fawtrap-go/bus"
	"fawtrap-go/errcode"
	"fawtrap-go/services/detector"
	"fawtrap-go/services/envmon"
	"fawtrap-go/services/gate"
	"fawtrap-go/store"
	"fawtrap-go/types"
	"fawtrap-go/x/timex"
)

var (
	topicEvent = bus.T("trap", "event")
	topicState = bus.T("capture", "state")
)

// Camera and Microphone are the capture peripherals. Calls are synchronous
// with bounded latency; the orchestrator enforces the configured timeout and
// treats an overrun as a failed capture.
type Camera interface {
	CaptureImage(ctx context.Context, quality uint8) ([]byte, types.ImageMeta, error)
}

type Microphone interface {
	CaptureAudio(ctx context.Context, durationMS int, sampleRate uint32) ([]byte, types.AudioMeta, error)
}

// Orchestrator owns the detection→capture→record sequence. It is the only
// component that mutates the capture peripherals.
type Orchestrator struct {
	det  *detector.Detector
	gate gate.Gate
	env  *envmon.Service
	st   *store.Store
	cam  Camera
	mic  Microphone
	cfg  types.CaptureConfig
	conn *bus.Connection

	lastDetectTS int64
}

func New(det *detector.Detector, g gate.Gate, env *envmon.Service, st *store.Store,
	cam Camera, mic Microphone, cfg types.CaptureConfig, conn *bus.Connection) *Orchestrator {
	return &Orchestrator{det: det, gate: g, env: env, st: st, cam: cam, mic: mic, cfg: cfg, conn: conn}
}

// LastDetectTS reports the timestamp of the last accepted detection (display).
func (o *Orchestrator) LastDetectTS() int64 { return o.lastDetectTS }

// OnTick polls the detector and, on a qualifying detection, runs the capture
// sequence and appends the resulting event. Returns the new event ID.
// Image first (minimise motion blur delay), then audio (spans the
// post-detection acoustic window). A failed capture never aborts the event:
// a partial record is worth more than none.
func (o *Orchestrator) OnTick(ctx context.Context, now time.Time) (uint32, bool) {
	sig, ok := o.det.Poll(now)
	if !ok {
		return 0, false
	}

	// Daytime detections are assumed handling/testing, not moths.
	if !o.gate.IsNight() {
		o.publishState("ready", "daytime_signal_discarded")
		return 0, false
	}

	ev := types.Event{TS: sig.TS}

	if o.cfg.ImageOnDetect && o.cam != nil {
		ref, err := o.captureImage(ctx)
		if err != nil {
			ev.Flags |= types.FlagImageFailed
			o.publishState("degraded", string(errcode.CaptureFailed))
		} else {
			ev.Image = ref
		}
	}
	if o.cfg.AudioOnDetect && o.mic != nil {
		ref, err := o.captureAudio(ctx)
		if err != nil {
			ev.Flags |= types.FlagAudioFailed
			o.publishState("degraded", string(errcode.CaptureFailed))
		} else {
			ev.Audio = ref
		}
	}

	ev.Trigger = o.triggerReading(now)
	if ev.Trigger.Stale {
		ev.Flags |= types.FlagStaleReading
	}

	id := o.st.Append(ev)
	o.lastDetectTS = sig.TS
	if o.conn != nil {
		o.conn.Publish(o.conn.NewMessage(topicEvent, id, false))
	}
	return id, true
}

// triggerReading snapshots the latest environment sample, requesting a fresh
// one when the cached sample exceeds the staleness threshold.
func (o *Orchestrator) triggerReading(now time.Time) types.Reading {
	r, ok := o.env.Latest()
	if ok && timex.SinceMs(r.TS, now.UnixMilli()) <= int64(o.cfg.StaleReadingMS) {
		return r
	}
	return o.env.Sample(now)
}

func (o *Orchestrator) captureImage(ctx context.Context) (types.ArtifactRef, error) {
	type result struct {
		data []byte
		meta types.ImageMeta
		err  error
	}
	done := make(chan result, 1)
	cctx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.TimeoutMS)*time.Millisecond)
	defer cancel()
	go func() {
		data, meta, err := o.cam.CaptureImage(cctx, o.cfg.ImageQuality)
		done <- result{data, meta, err}
	}()
	select {
	case <-cctx.Done():
		return types.ArtifactRef{}, &errcode.E{C: errcode.CaptureFailed, Op: "capture.image", Err: cctx.Err()}
	case res := <-done:
		if res.err != nil {
			return types.ArtifactRef{}, &errcode.E{C: errcode.CaptureFailed, Op: "capture.image", Err: res.err}
		}
		return o.stash(types.ArtifactImage, res.data, res.meta, types.AudioMeta{})
	}
}

func (o *Orchestrator) captureAudio(ctx context.Context) (types.ArtifactRef, error) {
	type result struct {
		data []byte
		meta types.AudioMeta
		err  error
	}
	done := make(chan result, 1)
	// Audio needs the recording window on top of the peripheral budget.
	timeout := time.Duration(o.cfg.TimeoutMS+o.cfg.AudioDurationMS) * time.Millisecond
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	go func() {
		data, meta, err := o.mic.CaptureAudio(cctx, o.cfg.AudioDurationMS, o.cfg.AudioSampleRate)
		done <- result{data, meta, err}
	}()
	select {
	case <-cctx.Done():
		return types.ArtifactRef{}, &errcode.E{C: errcode.CaptureFailed, Op: "capture.audio", Err: cctx.Err()}
	case res := <-done:
		if res.err != nil {
			return types.ArtifactRef{}, &errcode.E{C: errcode.CaptureFailed, Op: "capture.audio", Err: res.err}
		}
		return o.stash(types.ArtifactAudio, res.data, types.ImageMeta{}, res.meta)
	}
}

// stash moves a capture payload into the arena and builds its handle.
func (o *Orchestrator) stash(kind types.ArtifactKind, data []byte, im types.ImageMeta, am types.AudioMeta) (types.ArtifactRef, error) {
	slot, buf, ok := o.st.Arena().Alloc(len(data))
	if !ok {
		return types.ArtifactRef{}, &errcode.E{C: errcode.ArenaFull, Op: "capture.stash"}
	}
	copy(buf, data)
	ref := types.ArtifactRef{Kind: kind, Slot: slot, Size: uint32(len(data))}
	switch kind {
	case types.ArtifactImage:
		ref.Image = im
	case types.ArtifactAudio:
		ref.Audio = am
	}
	return ref, nil
}

func (o *Orchestrator) publishState(level, status string) {
	if o.conn == nil {
		return
	}
	o.conn.Publish(o.conn.NewMessage(topicState, types.ServiceState{
		Level: level, Status: status, TS: timex.NowMs(),
	}, true))
}
