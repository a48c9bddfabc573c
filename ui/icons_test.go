package ui

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"

	"github.com/yllada/vpn-connector/common"
)

func TestIconGenerator_Generate(t *testing.T) {
	statuses := []common.ConnectionStatus{
		common.StatusUnknown,
		common.StatusDisconnected,
		common.StatusConnecting,
		common.StatusConnected,
		common.StatusDisconnecting,
		common.StatusError,
	}

	for _, status := range statuses {
		t.Run(status.String(), func(t *testing.T) {
			cfg := IconConfigFor(status)
			data, err := NewIconGenerator(cfg).Generate()
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("png.Decode() error = %v", err)
			}
			if b := img.Bounds(); b.Dx() != cfg.Size || b.Dy() != cfg.Size {
				t.Errorf("icon size = %dx%d, want %dx%d", b.Dx(), b.Dy(), cfg.Size, cfg.Size)
			}

			// The shield centre is never transparent.
			_, _, _, a := img.At(cfg.Size/2, cfg.Size/2).RGBA()
			if a == 0 {
				t.Error("icon centre is transparent")
			}
		})
	}
}

func TestIconConfigFor_DistinctStates(t *testing.T) {
	connected := IconConfigFor(common.StatusConnected)
	disconnected := IconConfigFor(common.StatusDisconnected)
	connecting := IconConfigFor(common.StatusConnecting)

	if connected.FillColor == disconnected.FillColor {
		t.Error("connected and disconnected icons share a fill colour")
	}
	if connecting.Glyph != GlyphDots {
		t.Errorf("connecting glyph = %v, want dots", connecting.Glyph)
	}
	if IconConfigFor(common.StatusDisconnecting) != connecting {
		t.Error("disconnecting should look like connecting")
	}
}

func TestEncodeICO(t *testing.T) {
	payload := []byte("\x89PNG fake payload")
	ico := EncodeICO(payload, 22)

	if len(ico) != 6+16+len(payload) {
		t.Fatalf("len(ico) = %d, want %d", len(ico), 6+16+len(payload))
	}

	var header [3]uint16
	if err := binary.Read(bytes.NewReader(ico[:6]), binary.LittleEndian, &header); err != nil {
		t.Fatalf("reading header: %v", err)
	}
	if header != [3]uint16{0, 1, 1} {
		t.Errorf("header = %v, want [0 1 1]", header)
	}
	if ico[6] != 22 || ico[7] != 22 {
		t.Errorf("entry size = %dx%d, want 22x22", ico[6], ico[7])
	}
	if size := binary.LittleEndian.Uint32(ico[14:18]); size != uint32(len(payload)) {
		t.Errorf("entry bytes = %d, want %d", size, len(payload))
	}
	if offset := binary.LittleEndian.Uint32(ico[18:22]); offset != 22 {
		t.Errorf("entry offset = %d, want 22", offset)
	}
	if !bytes.Equal(ico[22:], payload) {
		t.Error("payload not copied verbatim")
	}

	if big := EncodeICO(payload, 256); big[6] != 0 || big[7] != 0 {
		t.Error("256px icons must encode their size as 0")
	}
}

func TestTrayIcon(t *testing.T) {
	if len(TrayIcon(common.StatusConnected)) == 0 {
		t.Error("TrayIcon() returned no data")
	}
}
