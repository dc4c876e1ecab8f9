// File: tigermeter/models/display.go
package models

import "fmt"

// Text alignment options for display lines.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

var validAligns = map[string]bool{AlignLeft: true, AlignCenter: true, AlignRight: true}

var validLedColors = map[string]bool{
	"blue": true, "green": true, "red": true, "yellow": true, "purple": true, "rainbow": true,
}

var validLedBrightness = map[string]bool{
	"off": true, "low": true, "mid": true, "high": true,
}

// DisplayInstruction is the full rendering payload pushed to a device.
// The Hash field is excluded from content hashing; Beep and FlashCount
// are one-time actions consumed on delivery and likewise never hashed
// into the stored display hash by the client.
type DisplayInstruction struct {
	Version int    `json:"version"`
	Hash    string `json:"hash"`

	Symbol   string `json:"symbol"`
	MainText string `json:"mainText"`

	SymbolFontSize int `json:"symbolFontSize,omitempty"`

	TopLine         string `json:"topLine,omitempty"`
	TopLineFontSize int    `json:"topLineFontSize,omitempty"`
	TopLineAlign    string `json:"topLineAlign,omitempty"`
	TopLineShowDate bool   `json:"topLineShowDate,omitempty"`

	MainTextFontSize int    `json:"mainTextFontSize,omitempty"`
	MainTextAlign    string `json:"mainTextAlign,omitempty"`

	BottomLine         string `json:"bottomLine,omitempty"`
	BottomLineFontSize int    `json:"bottomLineFontSize,omitempty"`
	BottomLineAlign    string `json:"bottomLineAlign,omitempty"`

	LedColor      string `json:"ledColor,omitempty"`
	LedBrightness string `json:"ledBrightness,omitempty"`

	// One-time actions, stripped from the stored payload after first delivery.
	Beep       bool `json:"beep,omitempty"`
	FlashCount int  `json:"flashCount,omitempty"`

	RefreshInterval int     `json:"refreshInterval,omitempty"`
	TimezoneOffset  float64 `json:"timezoneOffset,omitempty"`

	Extensions map[string]any `json:"extensions,omitempty"`
}

func validFontSize(size int) bool {
	return size == 0 || (size >= 10 && size <= 40)
}

// Validate checks required fields and enum/range constraints.
func (d *DisplayInstruction) Validate() error {
	if d.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if d.MainText == "" {
		return fmt.Errorf("mainText is required")
	}
	if d.Hash == "" {
		return fmt.Errorf("hash is required")
	}
	if !validFontSize(d.SymbolFontSize) || !validFontSize(d.TopLineFontSize) ||
		!validFontSize(d.MainTextFontSize) || !validFontSize(d.BottomLineFontSize) {
		return fmt.Errorf("font sizes must be between 10 and 40")
	}
	for _, align := range []string{d.TopLineAlign, d.MainTextAlign, d.BottomLineAlign} {
		if align != "" && !validAligns[align] {
			return fmt.Errorf("invalid text alignment %q", align)
		}
	}
	if d.LedColor != "" && !validLedColors[d.LedColor] {
		return fmt.Errorf("invalid led color %q", d.LedColor)
	}
	if d.LedBrightness != "" && !validLedBrightness[d.LedBrightness] {
		return fmt.Errorf("invalid led brightness %q", d.LedBrightness)
	}
	if d.FlashCount < 0 {
		return fmt.Errorf("flashCount must not be negative")
	}
	if d.RefreshInterval != 0 && d.RefreshInterval < 5 {
		return fmt.Errorf("refreshInterval must be at least 5 seconds")
	}
	if d.TimezoneOffset < -12 || d.TimezoneOffset > 14 {
		return fmt.Errorf("timezoneOffset must be between -12 and 14")
	}
	return nil
}
