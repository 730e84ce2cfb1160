// services/display/display.go
package display

import (
	"context"
	"strconv"
	"time"

	"fawtrap-go/bus"
	"fawtrap-go/types"
)

var topicStatus = bus.T("trap", "status")

// Renderer puts two short lines somewhere a field tech can see them. The
// host build prints them; device builds can wire a character LCD.
type Renderer func(line1, line2 string)

// Service is a pull-style status display: it consumes the retained
// trap/status snapshot and re-renders on change or on its refresh tick.
type Service struct {
	render  Renderer
	refresh time.Duration

	last types.TrapStatus
	seen bool
}

func New(render Renderer, refresh time.Duration) *Service {
	if refresh <= 0 {
		refresh = 5 * time.Second
	}
	return &Service{render: render, refresh: refresh}
}

// Start runs the service loop on its own goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(topicStatus)
	defer conn.Unsubscribe(sub)

	tick := time.NewTicker(s.refresh)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Channel():
			if st, ok := msg.Payload.(types.TrapStatus); ok {
				s.last = st
				s.seen = true
				s.draw()
			}
		case <-tick.C:
			if s.seen {
				s.draw()
			}
		}
	}
}

func (s *Service) draw() {
	if s.render == nil {
		return
	}
	s.render(Lines(s.last))
}

// Lines formats the snapshot for a 16x2 style display.
func Lines(st types.TrapStatus) (string, string) {
	l1 := "Events " + strconv.Itoa(st.EventCount) +
		" unsent " + strconv.Itoa(st.UnsentCount)
	l2 := "Last: none"
	if st.LastDetectTS > 0 {
		l2 = "Last: " + time.UnixMilli(st.LastDetectTS).Format("15:04:05")
	}
	if !st.LastReading.Stale && st.LastReading.TS > 0 {
		l2 += " " + strconv.Itoa(int(st.LastReading.AirTempDeciC)/10) + "C"
	}
	return l1, l2
}
