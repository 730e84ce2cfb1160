package types

// Trap configuration supplied as embedded JSON, published per-section on
// "config/<section>". Defaults mirror the production trap settings.

import (
	"github.com/google/uuid"

	"fawtrap-go/errcode"
)

type TrapConfig struct {
	Device    DeviceConfig    `json:"device"`
	Detection DetectionConfig `json:"detection"`
	Night     NightConfig     `json:"night"`
	Capture   CaptureConfig   `json:"capture"`
	Env       EnvConfig       `json:"env"`
	Link      LinkConfig      `json:"link"`
	Store     StoreConfig     `json:"store"`
	Pins      PinConfig       `json:"pins"`
}

type DeviceConfig struct {
	Name            string `json:"name"` // e.g. "FAWTrap_001"
	FirmwareVersion string `json:"firmware_version"`
}

type DetectionConfig struct {
	DebounceMS       int `json:"debounce_ms"`        // beam must stay broken this long
	CooldownMS       int `json:"cooldown_ms"`        // min gap between accepted detections
	ButtonDebounceMS int `json:"button_debounce_ms"` // reset button, own timing
}

// NightConfig selects the night-gate strategy.
// Mode: "ldr", "clock" or "always" (force night, for daytime testing).
type NightConfig struct {
	Mode           string `json:"mode"`
	LightThreshold uint8  `json:"light_threshold"` // below this % = night
	LDRMin         uint16 `json:"ldr_min"`         // ADC reading in darkness
	LDRMax         uint16 `json:"ldr_max"`         // ADC reading in bright light
	StartHour      int    `json:"start_hour"`      // clock mode, may wrap midnight
	EndHour        int    `json:"end_hour"`
}

type CaptureConfig struct {
	ImageOnDetect   bool   `json:"image_on_detect"`
	AudioOnDetect   bool   `json:"audio_on_detect"`
	ImageQuality    uint8  `json:"image_quality"` // JPEG 0..63
	AudioSampleRate uint32 `json:"audio_sample_rate"`
	AudioDurationMS int    `json:"audio_duration_ms"`
	TimeoutMS       int    `json:"timeout_ms"`        // per capture call
	StaleReadingMS  int    `json:"stale_reading_ms"`  // request fresh reading beyond this
}

type EnvConfig struct {
	ReadingIntervalMS int    `json:"reading_interval_ms"`
	SoilDryRaw        uint16 `json:"soil_dry_raw"` // ADC in dry air
	SoilWetRaw        uint16 `json:"soil_wet_raw"` // ADC in water
}

type LinkConfig struct {
	ServiceUUID       string `json:"service_uuid"`
	CharacteristicTX  string `json:"characteristic_tx"`
	CharacteristicRX  string `json:"characteristic_rx"`
	MTU               int    `json:"mtu"`
	AckTimeoutMS      int    `json:"ack_timeout_ms"`
	MaxRetries        int    `json:"max_retries"`
	AutoSendOnConnect bool   `json:"auto_send_on_connect"`
	Addr              string `json:"addr"` // host transports; transport default when empty
}

type StoreConfig struct {
	MaxEvents  int `json:"max_events"`
	ArenaBytes int `json:"arena_bytes"` // capture arena capacity
}

type PinConfig struct {
	IRLed        int `json:"ir_led"`
	IRReceiver   int `json:"ir_receiver"`
	SoilTemp     int `json:"soil_temp"`
	AirSensor    int `json:"air_sensor"`
	I2CSDA       int `json:"i2c_sda"`
	I2CSCL       int `json:"i2c_scl"`
	Button       int `json:"button"`
	LDR          int `json:"ldr"`
	SoilMoisture int `json:"soil_moisture"`
	LED          int `json:"led"`
}

// Validate rejects configurations the firmware must not run with.
// A zero or negative timing constant, inverted calibration bounds or a
// malformed link UUID is fatal at startup.
func (c *TrapConfig) Validate() error {
	bad := func(msg string) error {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: msg}
	}

	if c.Device.Name == "" {
		return bad("device name empty")
	}
	if c.Detection.DebounceMS <= 0 {
		return bad("detection.debounce_ms must be > 0")
	}
	if c.Detection.CooldownMS <= 0 {
		return bad("detection.cooldown_ms must be > 0")
	}
	if c.Detection.ButtonDebounceMS <= 0 {
		return bad("detection.button_debounce_ms must be > 0")
	}

	switch c.Night.Mode {
	case "ldr":
		if c.Night.LDRMin >= c.Night.LDRMax {
			return bad("night.ldr_min must be below night.ldr_max")
		}
		if c.Night.LightThreshold > 100 {
			return bad("night.light_threshold must be 0..100")
		}
	case "clock":
		if c.Night.StartHour < 0 || c.Night.StartHour > 23 {
			return bad("night.start_hour must be 0..23")
		}
		if c.Night.EndHour < 0 || c.Night.EndHour > 23 {
			return bad("night.end_hour must be 0..23")
		}
	case "always":
	default:
		return bad("night.mode must be ldr, clock or always")
	}

	if c.Capture.TimeoutMS <= 0 {
		return bad("capture.timeout_ms must be > 0")
	}
	if c.Capture.StaleReadingMS <= 0 {
		return bad("capture.stale_reading_ms must be > 0")
	}
	if c.Capture.AudioOnDetect {
		if c.Capture.AudioDurationMS <= 0 {
			return bad("capture.audio_duration_ms must be > 0")
		}
		if c.Capture.AudioSampleRate == 0 {
			return bad("capture.audio_sample_rate must be > 0")
		}
	}
	if c.Capture.ImageQuality > 63 {
		return bad("capture.image_quality must be 0..63")
	}

	if c.Env.ReadingIntervalMS <= 0 {
		return bad("env.reading_interval_ms must be > 0")
	}
	if c.Env.SoilWetRaw >= c.Env.SoilDryRaw {
		return bad("env.soil_wet_raw must be below env.soil_dry_raw")
	}

	if c.Link.MTU < 64 {
		return bad("link.mtu must be >= 64")
	}
	if c.Link.AckTimeoutMS <= 0 {
		return bad("link.ack_timeout_ms must be > 0")
	}
	if c.Link.MaxRetries < 0 {
		return bad("link.max_retries must be >= 0")
	}
	for _, u := range []string{c.Link.ServiceUUID, c.Link.CharacteristicTX, c.Link.CharacteristicRX} {
		if _, err := uuid.Parse(u); err != nil {
			return bad("link uuid malformed: " + u)
		}
	}

	if c.Store.MaxEvents <= 0 {
		return bad("store.max_events must be > 0")
	}
	if c.Store.ArenaBytes <= 0 {
		return bad("store.arena_bytes must be > 0")
	}
	return nil
}
