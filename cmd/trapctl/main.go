// cmd/trapctl/main.go
//
// trapctl is the companion-side tool: it speaks the trap's transfer protocol
// over websocket, the same role the mobile app plays over BLE.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fawtrap-go/transfer"
	"fawtrap-go/transport"
	"fawtrap-go/types"
)

var (
	trapAddr string
	outDir   string
)

var rootCmd = &cobra.Command{
	Use:   "trapctl",
	Short: "Companion tool for FAW trap devices",
	Long: `trapctl talks to a trap (or trapsim) over websocket: query status,
pull captured events, and clear the on-device store.`,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored/unsent event counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, closeFn, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		stored, unsent, lastID, err := cl.Status()
		if err != nil {
			return err
		}
		fmt.Printf("stored %d  unsent %d  last id %d\n", stored, unsent, lastID)
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull all unsent events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, closeFn, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		evs, err := cl.PullAll()
		if err != nil {
			return err
		}
		return report(evs)
	},
}

var sinceCmd = &cobra.Command{
	Use:   "since <event-id>",
	Short: "Pull every event after the given id, sent or not",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		after, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("bad event id %q: %w", args[0], err)
		}
		cl, closeFn, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		evs, err := cl.PullSince(uint32(after))
		if err != nil {
			return err
		}
		return report(evs)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the on-device event store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, closeFn, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		if err := cl.Clear(); err != nil {
			return err
		}
		fmt.Println("store cleared")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&trapAddr, "addr",
		"ws://127.0.0.1:9444/link", "trap websocket endpoint")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "",
		"directory to save pulled artifacts into")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(sinceCmd)
	rootCmd.AddCommand(clearCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial(ctx context.Context) (*transfer.Client, func(), error) {
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := transport.DialWS(dctx, trapAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", trapAddr, err)
	}
	return transfer.NewClient(conn), func() { conn.Close() }, nil
}

func report(evs []transfer.ReceivedEvent) error {
	if len(evs) == 0 {
		fmt.Println("no events")
		return nil
	}
	for _, ev := range evs {
		h := ev.Header
		fmt.Printf("event %d  %s  image %dB  audio %dB%s\n",
			h.ID,
			time.UnixMilli(h.TS).Format("2006-01-02 15:04:05"),
			len(ev.Image), len(ev.Audio),
			flagNote(h.Flags))
		fmt.Printf("  air %.1fC %d%%  soil %.1fC %d%%  light %d%%\n",
			float64(h.Trigger.AirTempDeciC)/10, h.Trigger.AirHumidityPct,
			float64(h.Trigger.SoilTempDeciC)/10, h.Trigger.SoilMoisturePct,
			h.Trigger.LightPct)
		if outDir != "" {
			if err := save(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func flagNote(f types.EventFlags) string {
	s := ""
	if f&types.FlagImageFailed != 0 {
		s += "  [image failed]"
	}
	if f&types.FlagAudioFailed != 0 {
		s += "  [audio failed]"
	}
	if f&types.FlagStaleReading != 0 {
		s += "  [stale reading]"
	}
	return s
}

func save(ev transfer.ReceivedEvent) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	id := strconv.FormatUint(uint64(ev.Header.ID), 10)
	if len(ev.Image) > 0 {
		p := filepath.Join(outDir, "event_"+id+".jpg")
		if err := os.WriteFile(p, ev.Image, 0o644); err != nil {
			return err
		}
		fmt.Println("  wrote", p)
	}
	if len(ev.Audio) > 0 {
		p := filepath.Join(outDir, "event_"+id+".pcm")
		if err := os.WriteFile(p, ev.Audio, 0o644); err != nil {
			return err
		}
		fmt.Println("  wrote", p)
	}
	return nil
}
