package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device name
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgFAWTrap001 = `{
  "device": {
    "name": "FAWTrap_001",
    "firmware_version": "1.0"
  },
  "detection": {
    "debounce_ms": 100,
    "cooldown_ms": 500,
    "button_debounce_ms": 50
  },
  "night": {
    "mode": "ldr",
    "light_threshold": 30,
    "ldr_min": 0,
    "ldr_max": 4095,
    "start_hour": 18,
    "end_hour": 6
  },
  "capture": {
    "image_on_detect": true,
    "audio_on_detect": true,
    "image_quality": 10,
    "audio_sample_rate": 16000,
    "audio_duration_ms": 2000,
    "timeout_ms": 1500,
    "stale_reading_ms": 60000
  },
  "env": {
    "reading_interval_ms": 60000,
    "soil_dry_raw": 3000,
    "soil_wet_raw": 1000
  },
  "link": {
    "service_uuid": "4fafc201-1fb5-459e-8fcc-c5c9c331914b",
    "characteristic_tx": "beb5483e-36e1-4688-b7f5-ea07361b26a8",
    "characteristic_rx": "beb5483e-36e1-4688-b7f5-ea07361b26a9",
    "mtu": 512,
    "ack_timeout_ms": 1000,
    "max_retries": 2,
    "auto_send_on_connect": true
  },
  "store": {
    "max_events": 100,
    "arena_bytes": 262144
  },
  "pins": {
    "ir_led": 1,
    "ir_receiver": 2,
    "soil_temp": 3,
    "air_sensor": 4,
    "i2c_sda": 5,
    "i2c_scl": 6,
    "button": 7,
    "ldr": 8,
    "soil_moisture": 9,
    "led": 21
  }
}`

var embeddedConfigs = map[string][]byte{
	"FAWTrap_001": []byte(cfgFAWTrap001),
}
