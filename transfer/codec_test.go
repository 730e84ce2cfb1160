// transfer/codec_test.go
package transfer

import (
	"bytes"
	"testing"

	"fawtrap-go/types"
)

func TestFrameRoundTrip(t *testing.T) {
	in := Frame{Type: EvtChunk, Seq: 0x1234, Payload: []byte("payload bytes")}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if out.Type != in.Type || out.Seq != in.Seq || !bytes.Equal(out.Payload, in.Payload) {
		t.Errorf("stream round trip: got %+v", out)
	}

	pkt, err := EncodeFrame(nil, in)
	if err != nil {
		t.Fatal(err)
	}
	out2, ok := DecodeFrame(pkt)
	if !ok {
		t.Fatal("DecodeFrame rejected a valid packet")
	}
	if out2.Seq != in.Seq || !bytes.Equal(out2.Payload, in.Payload) {
		t.Errorf("packet round trip: got %+v", out2)
	}
}

func TestDecodeFrameRejectsMalformed(t *testing.T) {
	if _, ok := DecodeFrame([]byte{0x20, 0x00}); ok {
		t.Error("short packet accepted")
	}
	// Declared length longer than the packet.
	pkt := []byte{0x21, 0x00, 0x01, 0x00, 0x09, 'x', 'y'}
	if _, ok := DecodeFrame(pkt); ok {
		t.Error("length mismatch accepted")
	}
	// Trailing garbage after the declared payload.
	pkt, _ = EncodeFrame(nil, Frame{Type: CmdAck, Seq: 7})
	if _, ok := DecodeFrame(append(pkt, 0xFF)); ok {
		t.Error("oversized packet accepted")
	}
}

func TestEventHeaderRoundTrip(t *testing.T) {
	in := EventHeader{
		ID:       42,
		TotalLen: 3000 + 64000,
		Flags:    types.FlagAudioFailed | types.FlagStaleReading,
		TS:       1767225600123,
		Trigger: types.Reading{
			TS:              1767225600100,
			AirTempDeciC:    -55,
			AirHumidityPct:  81,
			SoilTempDeciC:   194,
			SoilMoisturePct: 37,
			LightPct:        2,
			Stale:           true,
		},
		Image: types.ArtifactRef{
			Kind:  types.ArtifactImage,
			Size:  3000,
			Image: types.ImageMeta{Width: 640, Height: 480, Quality: 10},
		},
		Audio: types.ArtifactRef{
			Kind:  types.ArtifactAudio,
			Size:  64000,
			Audio: types.AudioMeta{SampleRate: 16000, DurationMS: 2000},
		},
	}

	b := encodeHeader(in)
	if len(b) != headerLen {
		t.Fatalf("header len = %d, want %d", len(b), headerLen)
	}
	out, ok := DecodeHeader(b)
	if !ok {
		t.Fatal("DecodeHeader rejected a valid block")
	}
	if out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}

	if _, ok := DecodeHeader(b[:headerLen-1]); ok {
		t.Error("truncated header accepted")
	}
}

func TestHeaderFitsMinimumMTU(t *testing.T) {
	if headerLen+frameOverhead > MinMTU {
		t.Fatalf("header frame needs %d bytes, MinMTU is %d", headerLen+frameOverhead, MinMTU)
	}
}
