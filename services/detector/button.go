// services/detector/button.go
package detector

import "time"

// Button debounces a maintenance button with its own timing. It fires once
// when the line has been pressed continuously for the debounce window and
// re-arms only after release. Same polling discipline as the beam detector.
type Button struct {
	debounce time.Duration
	sample   func() bool // true = pressed

	pressedAt time.Time
	fired     bool
}

func NewButton(debounce time.Duration, sample func() bool) *Button {
	if debounce <= 0 {
		debounce = 50 * time.Millisecond
	}
	return &Button{debounce: debounce, sample: sample}
}

// Poll reports true exactly once per stable press.
func (b *Button) Poll(now time.Time) bool {
	pressed := b.sample()
	if !pressed {
		b.pressedAt = time.Time{}
		b.fired = false
		return false
	}
	if b.pressedAt.IsZero() {
		b.pressedAt = now
		return false
	}
	if !b.fired && now.Sub(b.pressedAt) >= b.debounce {
		b.fired = true
		return true
	}
	return false
}
