package main

import (
	"fawtrap-go/services/capture"
	"fawtrap-go/services/detector"
	"fawtrap-go/services/display"
	"fawtrap-go/services/envmon"
	"fawtrap-go/transfer"
)

// platform bundles everything that differs between the device build and a
// host run: sensor access, the beam and button lines, capture hardware, the
// peer link transport and the status renderer. buildPlatform is provided by
// the build-tagged factories file.
type platform struct {
	Sensors envmon.Sensors

	Beam          func() bool // polled line sampler
	AttachBeamIRQ func(*detector.Detector)
	Button        func() bool // nil = no reset button fitted

	ReadLDR func() (uint16, error)
	Hour    func() int

	Camera capture.Camera
	Mic    capture.Microphone

	Transport transfer.Transport
	Render    display.Renderer
}
