// services/display/display_test.go
package display

import (
	"context"
	"strings"
	"testing"
	"time"

	"fawtrap-go/bus"
	"fawtrap-go/types"
)

func TestLinesFormatting(t *testing.T) {
	st := types.TrapStatus{
		EventCount:   7,
		UnsentCount:  3,
		LastDetectTS: time.Date(2026, 3, 1, 23, 15, 42, 0, time.UTC).UnixMilli(),
		LastReading:  types.Reading{TS: 1, AirTempDeciC: 224},
	}
	l1, l2 := Lines(st)
	if l1 != "Events 7 unsent 3" {
		t.Errorf("line1 = %q", l1)
	}
	if !strings.HasPrefix(l2, "Last: ") || strings.Contains(l2, "none") {
		t.Errorf("line2 = %q, want detection time", l2)
	}
	if !strings.Contains(l2, "22C") {
		t.Errorf("line2 = %q, want temperature", l2)
	}

	l1, l2 = Lines(types.TrapStatus{})
	if l1 != "Events 0 unsent 0" || l2 != "Last: none" {
		t.Errorf("empty snapshot lines = %q / %q", l1, l2)
	}
}

func TestRendersRetainedStatus(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("pub")
	conn.Publish(conn.NewMessage(bus.T("trap", "status"),
		types.TrapStatus{EventCount: 2}, true))

	lines := make(chan string, 1)
	svc := New(func(l1, _ string) {
		select {
		case lines <- l1:
		default:
		}
	}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, b.NewConnection("display"))

	select {
	case l1 := <-lines:
		if l1 != "Events 2 unsent 0" {
			t.Errorf("rendered %q", l1)
		}
	case <-time.After(time.Second):
		t.Fatal("display never rendered the retained snapshot")
	}
}
