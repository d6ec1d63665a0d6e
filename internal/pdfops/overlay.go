package pdfops

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// overlayFont is a standard font, so no font program gets embedded and
// widths come from the built-in metrics.
const overlayFont = "Helvetica"

// PageNumberMargin is the distance of page labels from the page edges.
const PageNumberMargin = 30.0

// Color is an RGB colour with components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

func (c Color) hex() string {
	channel := func(v float64) int {
		return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return fmt.Sprintf("#%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B))
}

// WatermarkOptions controls the appearance of a watermark.
type WatermarkOptions struct {
	FontSize int
	Opacity  float64
	// Rotation in degrees, counter-clockwise.
	Rotation float64
	Color    Color
}

func DefaultWatermarkOptions() WatermarkOptions {
	return WatermarkOptions{
		FontSize: 50,
		Opacity:  0.3,
		Rotation: -45,
		Color:    Color{R: 0.5, G: 0.5, B: 0.5},
	}
}

// Position is the anchor of a page label.
type Position int

const (
	BottomCenter Position = iota
	BottomLeft
	BottomRight
	TopLeft
	TopCenter
	TopRight
)

var positionNames = map[Position]string{
	BottomCenter: "bottom-center",
	BottomLeft:   "bottom-left",
	BottomRight:  "bottom-right",
	TopLeft:      "top-left",
	TopCenter:    "top-center",
	TopRight:     "top-right",
}

func (p Position) String() string {
	if s, ok := positionNames[p]; ok {
		return s
	}
	return "Position(" + strconv.Itoa(int(p)) + ")"
}

// ParsePosition parses names such as "top-left" or "bottom-center".
func ParsePosition(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range positionNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown page number position %q", s)
}

// PageNumberOptions controls page labels. Format may reference {n}, the
// page number, and {total}, the page count.
type PageNumberOptions struct {
	Position    Position
	Format      string
	FontSize    int
	StartNumber int
}

func DefaultPageNumberOptions() PageNumberOptions {
	return PageNumberOptions{
		Position:    BottomCenter,
		Format:      "Page {n} of {total}",
		FontSize:    12,
		StartNumber: 1,
	}
}

// AddWatermark draws text across the middle of every page on top of the
// existing content.
func (e *Engine) AddWatermark(ctx context.Context, data []byte, text string, opts WatermarkOptions) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultWatermarkOptions().FontSize
	}

	doc, err := e.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}

	width := textWidth(text, opts.FontSize)
	stamps := make(map[int]*model.Watermark, len(pages))
	for i, p := range pages {
		x, y := watermarkOrigin(p, width)
		wm, err := textStamp(text, opts.FontSize, x, y, opts.Rotation, opts.Opacity, opts.Color)
		if err != nil {
			return nil, fmt.Errorf("failed to build watermark: %w", err)
		}
		stamps[i+1] = wm
	}

	out, err := e.stamp(ctx, data, stamps)
	if err != nil {
		return nil, err
	}
	e.log.Info("Added watermark.", "pageCount", len(pages), "fontSize", opts.FontSize)
	return out, nil
}

// AddPageNumbers stamps a label on every page.
func (e *Engine) AddPageNumbers(ctx context.Context, data []byte, opts PageNumberOptions) ([]byte, error) {
	def := DefaultPageNumberOptions()
	if opts.Format == "" {
		opts.Format = def.Format
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.StartNumber < 1 {
		opts.StartNumber = def.StartNumber
	}

	doc, err := e.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}

	stamps := make(map[int]*model.Watermark, len(pages))
	for i, p := range pages {
		label := pageLabel(opts.Format, opts.StartNumber+i, len(pages))
		if strings.TrimSpace(label) == "" {
			return nil, ErrEmptyText
		}
		x, y := labelOrigin(opts.Position, p, textWidth(label, opts.FontSize))
		wm, err := textStamp(label, opts.FontSize, x, y, 0, 1, Color{})
		if err != nil {
			return nil, fmt.Errorf("failed to build page label: %w", err)
		}
		stamps[i+1] = wm
	}

	out, err := e.stamp(ctx, data, stamps)
	if err != nil {
		return nil, err
	}
	e.log.Info("Added page numbers.", "pageCount", len(pages), "position", opts.Position.String())
	return out, nil
}

func (e *Engine) stamp(ctx context.Context, data []byte, stamps map[int]*model.Watermark) ([]byte, error) {
	out, err := e.write(ctx, func(w io.Writer) error {
		return api.AddWatermarksMap(bytes.NewReader(data), w, stamps, newConfiguration())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stamp pages: %w", err)
	}
	return out, nil
}

// textStamp describes text whose lower left corner sits at (x, y).
func textStamp(text string, fontSize int, x, y, rotation, opacity float64, c Color) (*model.Watermark, error) {
	desc := strings.Join([]string{
		"fontname:" + overlayFont,
		"points:" + strconv.Itoa(fontSize),
		"scalefactor:1 abs",
		"rotation:" + formatFloat(wrapAngle(rotation)),
		"opacity:" + formatFloat(opacity),
		"fillcolor:" + c.hex(),
		"position:bl",
		"offset:" + formatFloat(x) + " " + formatFloat(y),
	}, ", ")
	return pdfcpu.ParseTextWatermarkDetails(text, desc, true, types.POINTS)
}

// wrapAngle maps degrees into (-180, 180], the range the codec accepts.
func wrapAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	switch {
	case deg > 180:
		deg -= 360
	case deg <= -180:
		deg += 360
	}
	return deg
}

func textWidth(text string, fontSize int) float64 {
	return font.TextWidth(text, overlayFont, fontSize)
}

// watermarkOrigin centres text of the given width horizontally at half
// page height.
func watermarkOrigin(p Page, width float64) (x, y float64) {
	return (p.Width - width) / 2, p.Height / 2
}

func labelOrigin(pos Position, p Page, width float64) (x, y float64) {
	const m = PageNumberMargin
	switch pos {
	case TopLeft:
		return m, p.Height - m
	case TopCenter:
		return (p.Width - width) / 2, p.Height - m
	case TopRight:
		return p.Width - width - m, p.Height - m
	case BottomLeft:
		return m, m
	case BottomRight:
		return p.Width - width - m, m
	default:
		return (p.Width - width) / 2, m
	}
}

func pageLabel(format string, n, total int) string {
	return strings.NewReplacer(
		"{n}", strconv.Itoa(n),
		"{total}", strconv.Itoa(total),
	).Replace(format)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
