package pharos

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Color string

const (
	ColorFull Color = "full"
	ColorMono Color = "mono"
)

var Colors = []string{string(ColorFull), string(ColorMono)}

func (c Color) Valid() bool {
	return c == ColorFull || c == ColorMono
}

type Sides int

const (
	Simplex Sides = 1
	Duplex  Sides = 2
)

var SideChoices = []string{"1", "2"}

func (s Sides) Valid() bool {
	return s == Simplex || s == Duplex
}

// PrintOptions are the finishing options a document is uploaded with.
type PrintOptions struct {
	Color           Color
	Sides           Sides
	TwoPagesPerSide bool
	Copies          int
	// passed to the server as is, ex. "1-5, 8, 11-13", empty means all pages
	PageRange string
}

func (o PrintOptions) Validate() error {
	if !o.Color.Valid() {
		return fmt.Errorf("%w: color must be one of full, mono (got %q)", ErrInvalidOptions, o.Color)
	}
	if !o.Sides.Valid() {
		return fmt.Errorf("%w: sides must be 1 or 2 (got %d)", ErrInvalidOptions, o.Sides)
	}
	if o.Copies < 1 {
		return fmt.Errorf("%w: copies must be at least 1 (got %d)", ErrInvalidOptions, o.Copies)
	}
	return nil
}

func (o PrintOptions) PagesPerSide() int {
	if o.TwoPagesPerSide {
		return 2
	}
	return 1
}

type finishingOptions struct {
	Mono         bool   `json:"Mono"`
	Duplex       bool   `json:"Duplex"`
	PagesPerSide string `json:"PagesPerSide"`
	Copies       string `json:"Copies"`
	PageRange    string `json:"PageRange"`
	// not exposed in the web ui, the portal always sends Letter
	DefaultPageSize string `json:"DefaultPageSize"`
}

type uploadMetadata struct {
	FinishingOptions finishingOptions `json:"FinishingOptions"`
	PrinterName      *string          `json:"PrinterName"`
}

// Metadata renders the MetaData field of an upload.
func (o PrintOptions) Metadata() ([]byte, error) {
	return json.Marshal(uploadMetadata{
		FinishingOptions: finishingOptions{
			Mono:            o.Color == ColorMono,
			Duplex:          o.Sides == Duplex,
			PagesPerSide:    strconv.Itoa(o.PagesPerSide()),
			Copies:          strconv.Itoa(o.Copies),
			PageRange:       o.PageRange,
			DefaultPageSize: "Letter",
		},
	})
}
