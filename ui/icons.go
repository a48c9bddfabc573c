// Package ui provides the system tray and desktop notifications for VPN Connector.
// This file contains icon generation utilities for the system tray.
package ui

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"

	"github.com/yllada/vpn-connector/common"
)

// Glyph is the symbol drawn on the shield.
type Glyph int

const (
	GlyphLock Glyph = iota
	GlyphCheck
	GlyphDots
	GlyphCross
)

// IconConfig defines the configuration for icon generation.
type IconConfig struct {
	Size        int
	FillColor   color.RGBA
	BorderColor color.RGBA
	AccentColor color.RGBA
	SymbolColor color.RGBA
	Glyph       Glyph
}

// IconConfigFor returns the icon look for a connection status.
func IconConfigFor(status common.ConnectionStatus) IconConfig {
	white := color.RGBA{255, 255, 255, 255}
	switch status {
	case common.StatusConnected:
		return IconConfig{
			Size:        22,
			FillColor:   color.RGBA{56, 142, 60, 255},   // Dark green
			BorderColor: color.RGBA{76, 175, 80, 255},   // Green
			AccentColor: color.RGBA{200, 230, 201, 255}, // Light green
			SymbolColor: white,
			Glyph:       GlyphCheck,
		}
	case common.StatusConnecting, common.StatusDisconnecting:
		return IconConfig{
			Size:        22,
			FillColor:   color.RGBA{245, 124, 0, 255},  // Dark amber
			BorderColor: color.RGBA{255, 167, 38, 255}, // Amber
			AccentColor: color.RGBA{255, 224, 178, 255},
			SymbolColor: white,
			Glyph:       GlyphDots,
		}
	case common.StatusError:
		return IconConfig{
			Size:        22,
			FillColor:   color.RGBA{198, 40, 40, 255}, // Dark red
			BorderColor: color.RGBA{229, 57, 53, 255}, // Red
			AccentColor: color.RGBA{255, 205, 210, 255},
			SymbolColor: white,
			Glyph:       GlyphCross,
		}
	default:
		return IconConfig{
			Size:        22,
			FillColor:   color.RGBA{117, 117, 117, 255}, // Dark gray
			BorderColor: color.RGBA{158, 158, 158, 255}, // Gray
			AccentColor: color.RGBA{189, 189, 189, 255}, // Light gray
			SymbolColor: white,
			Glyph:       GlyphLock,
		}
	}
}

// IconGenerator generates PNG icons for the system tray.
type IconGenerator struct {
	config IconConfig
}

// NewIconGenerator creates a new icon generator with the given config.
func NewIconGenerator(config IconConfig) *IconGenerator {
	return &IconGenerator{config: config}
}

// Generate creates a PNG icon and returns the bytes.
func (g *IconGenerator) Generate() ([]byte, error) {
	size := g.config.Size
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	g.drawShield(img)

	switch g.config.Glyph {
	case GlyphCheck:
		g.drawCheckmark(img)
	case GlyphDots:
		g.drawDots(img)
	case GlyphCross:
		g.drawCross(img)
	default:
		g.drawLock(img)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawShield draws the shield shape on the image.
func (g *IconGenerator) drawShield(img *image.RGBA) {
	size := g.config.Size
	centerX := float64(size) / 2
	topY := 1.0
	bottomY := float64(size) - 2
	shieldWidth := float64(size) - 4

	isInShield := func(x, y float64) bool {
		relY := (y - topY) / (bottomY - topY)
		if relY < 0 || relY > 1 {
			return false
		}

		var halfWidth float64
		if relY < 0.5 {
			halfWidth = shieldWidth/2 - relY*0.5
		} else {
			progress := (relY - 0.5) * 2
			halfWidth = (shieldWidth/2 - 0.25) * (1 - progress*progress)
		}

		return x >= centerX-halfWidth && x <= centerX+halfWidth
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if !isInShield(fx, fy) {
				continue
			}

			isBorder := !isInShield(fx-1, fy) || !isInShield(fx+1, fy) ||
				!isInShield(fx, fy-1) || !isInShield(fx, fy+1)
			switch {
			case isBorder:
				img.Set(x, y, g.config.BorderColor)
			case float64(y)/float64(size) < 0.3:
				img.Set(x, y, g.config.AccentColor)
			default:
				img.Set(x, y, g.config.FillColor)
			}
		}
	}
}

func (g *IconGenerator) plot(img *image.RGBA, x, y int) {
	if x >= 0 && x < g.config.Size && y >= 0 && y < g.config.Size {
		img.Set(x, y, g.config.SymbolColor)
	}
}

// drawCheckmark draws a checkmark symbol on the image.
func (g *IconGenerator) drawCheckmark(img *image.RGBA) {
	points := []struct{ x, y int }{
		{6, 11}, {7, 11}, {7, 12}, {8, 12}, {8, 13}, {9, 13},
		{9, 12}, {10, 12}, {10, 11}, {11, 11}, {11, 10}, {12, 10},
		{12, 9}, {13, 9}, {13, 8}, {14, 8},
	}
	for _, p := range points {
		g.plot(img, p.x, p.y)
	}
}

// drawDots draws three dots for a pending transition.
func (g *IconGenerator) drawDots(img *image.RGBA) {
	for _, cx := range []int{7, 11, 15} {
		for dy := 0; dy < 2; dy++ {
			for dx := 0; dx < 2; dx++ {
				g.plot(img, cx-1+dx, 10+dy)
			}
		}
	}
}

// drawCross draws an X for the error state.
func (g *IconGenerator) drawCross(img *image.RGBA) {
	for i := 0; i <= 6; i++ {
		g.plot(img, 8+i, 7+i)
		g.plot(img, 14-i, 7+i)
	}
}

// drawLock draws a lock symbol on the image.
func (g *IconGenerator) drawLock(img *image.RGBA) {
	// Lock body
	for y := 10; y <= 15; y++ {
		for x := 8; x <= 14; x++ {
			if y == 10 || y == 15 || x == 8 || x == 14 {
				g.plot(img, x, y)
			}
		}
	}

	// Lock shackle
	for y := 6; y <= 8; y++ {
		g.plot(img, 9, y)
		g.plot(img, 13, y)
	}
	for x := 9; x <= 13; x++ {
		g.plot(img, x, 6)
	}
}

// EncodeICO wraps a PNG image in a single-entry ICO container.
func EncodeICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}

	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}

// TrayIcon returns the tray icon for status in the format the platform
// tray expects: ICO on Windows, PNG elsewhere.
func TrayIcon(status common.ConnectionStatus) []byte {
	cfg := IconConfigFor(status)
	data, err := NewIconGenerator(cfg).Generate()
	if err != nil {
		common.LogError("Failed to render tray icon: %v", err)
		return nil
	}
	if runtime.GOOS == "windows" {
		return EncodeICO(data, cfg.Size)
	}
	return data
}
