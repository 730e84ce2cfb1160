package types

// ---- Common service state (retained) ----

type ServiceState struct {
	Level  string `json:"level"`  // e.g. "idle", "ready", "degraded", "stopped"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// ---- Environment ----

// Reading is one environmental sample. Immutable once created.
// Stale marks a reading reused after a sensor failure (last-known fallback).
type Reading struct {
	TS              int64  `json:"ts_ms"`
	AirTempDeciC    int16  `json:"air_temp_deci_c"`    // tenths of °C
	AirHumidityPct  uint8  `json:"air_humidity_pct"`   // 0..100
	SoilTempDeciC   int16  `json:"soil_temp_deci_c"`   // tenths of °C
	SoilMoisturePct uint8  `json:"soil_moisture_pct"`  // 0..100, calibrated
	LightPct        uint8  `json:"light_pct"`          // 0..100, calibrated
	Stale           bool   `json:"stale,omitempty"`
}

// ---- Detection ----

// DetectionSignal is a debounced, cooldown-filtered beam-break event.
// Transient; consumed immediately by the capture orchestrator.
type DetectionSignal struct {
	TS       int64  `json:"ts_ms"`
	RawEdges uint32 `json:"raw_edges"` // diagnostic: raw IRQ edges seen so far
}

// ---- Capture artifacts ----

// ArtifactKind is a tagged variant discriminator; callers switch on it.
type ArtifactKind uint8

const (
	ArtifactNone ArtifactKind = iota
	ArtifactImage
	ArtifactAudio
)

// Slot indexes a payload in the capture arena. Events hold slots, not bytes.
type Slot uint16

const NoSlot Slot = 0

type ImageMeta struct {
	Width   uint16 `json:"width"`
	Height  uint16 `json:"height"`
	Quality uint8  `json:"quality"` // JPEG quality 0..63, lower = better
}

type AudioMeta struct {
	SampleRate uint32 `json:"sample_rate"`
	DurationMS uint32 `json:"duration_ms"`
}

// ArtifactRef is a handle to a captured payload held in the arena.
type ArtifactRef struct {
	Kind  ArtifactKind `json:"kind"`
	Slot  Slot         `json:"slot,omitempty"`
	Size  uint32       `json:"size,omitempty"`
	Image ImageMeta    `json:"image,omitempty"`
	Audio AudioMeta    `json:"audio,omitempty"`
}

// ---- Events ----

// EventFlags carries diagnostic bits set at capture time.
type EventFlags uint8

const (
	FlagImageFailed EventFlags = 1 << iota
	FlagAudioFailed
	FlagStaleReading
)

// Event is the unit of record. Immutable after creation except Sent.
// IDs are monotonic from 1 and never reused, even after eviction.
type Event struct {
	ID      uint32      `json:"id"`
	TS      int64       `json:"ts_ms"`
	Trigger Reading     `json:"trigger"`
	Image   ArtifactRef `json:"image"`
	Audio   ArtifactRef `json:"audio"`
	Flags   EventFlags  `json:"flags,omitempty"`
	Sent    bool        `json:"sent"`
}

// ---- Display / status ----

// TrapStatus is the pull-only snapshot the display renders from.
type TrapStatus struct {
	EventCount   int     `json:"event_count"`
	UnsentCount  int     `json:"unsent_count"`
	LastDetectTS int64   `json:"last_detect_ts_ms"` // 0 = none yet
	LastReading  Reading `json:"last_reading"`
	TS           int64   `json:"ts_ms"`
}
