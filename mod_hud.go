package arbor

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

type TextItem struct {
	Text     string
	Position [2]float32 // Pixels from the top-left corner
	Scale    float32
	Color    [4]float32
}

type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// TextRenderer packs an ASCII glyph atlas at load time and turns text
// items into screen-space triangles. The atlas image is CPU-side; a
// renderer uploads it as an alpha texture.
type TextRenderer struct {
	AtlasImage *image.Alpha
	Glyphs     map[rune]GlyphInfo
	Face       font.Face
}

func NewTextRenderer(fontPath string, fontSize float64) (*TextRenderer, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font file: %w", err)
	}
	return NewTextRendererFromBytes(fontBytes, fontSize)
}

func NewTextRendererFromBytes(fontBytes []byte, fontSize float64) (*TextRenderer, error) {
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}

	const atlasSize = 512
	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}

		if y+h >= atlasSize {
			break
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64.0, // fixed 26.6 to float
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &TextRenderer{
		AtlasImage: atlas,
		Glyphs:     glyphs,
		Face:       face,
	}, nil
}

// BuildVertices lays the items out in pixel space and emits clip-space
// triangles for the given screen size.
func (tr *TextRenderer) BuildVertices(items []TextItem, screenW, screenH int) []TextVertex {
	vertices := make([]TextVertex, 0, len(items)*6)

	sw := float32(screenW)
	sh := float32(screenH)
	metrics := tr.Face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	for _, item := range items {
		startX := item.Position[0]
		posX := startX
		posY := item.Position[1] + ascent*item.Scale

		for _, r := range item.Text {
			if r == '\n' {
				posX = startX
				posY += lineHeight * item.Scale
				continue
			}

			g, ok := tr.Glyphs[r]
			if !ok {
				continue
			}

			x0 := (posX+g.Off[0]*item.Scale)/sw*2.0 - 1.0
			y0 := 1.0 - (posY+g.Off[1]*item.Scale)/sh*2.0
			x1 := (posX+(g.Off[0]+g.Size[0])*item.Scale)/sw*2.0 - 1.0
			y1 := 1.0 - (posY+(g.Off[1]+g.Size[1])*item.Scale)/sh*2.0

			// Triangle 1
			vertices = append(vertices, TextVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.UVMin[0], g.UVMin[1]}, Color: item.Color})
			vertices = append(vertices, TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color})
			vertices = append(vertices, TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color})

			// Triangle 2
			vertices = append(vertices, TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color})
			vertices = append(vertices, TextVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.UVMax[0], g.UVMax[1]}, Color: item.Color})
			vertices = append(vertices, TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color})

			posX += g.Adv * item.Scale
		}
	}

	return vertices
}

// MeasureText returns the pixel width and height of a text block.
func (tr *TextRenderer) MeasureText(text string, scale float32) (float32, float32) {
	if tr == nil {
		return 0, 0
	}

	metrics := tr.Face.Metrics()
	lineHeight := float32(metrics.Height.Ceil())

	maxW := float32(0)
	currentW := float32(0)
	lines := 1

	for _, r := range text {
		if r == '\n' {
			if currentW > maxW {
				maxW = currentW
			}
			currentW = 0
			lines++
			continue
		}

		g, ok := tr.Glyphs[r]
		if !ok {
			continue
		}
		currentW += g.Adv * scale
	}

	if currentW > maxW {
		maxW = currentW
	}

	return maxW, lineHeight * scale * float32(lines)
}

// TextOverlay is the HUD output: the current items and their built
// vertices, refreshed every frame. A text pipeline consumes Vertices;
// headless runs can assert on Items directly.
type TextOverlay struct {
	Items    []TextItem
	Vertices []TextVertex

	Width  int
	Height int
}

// DebugHudModule renders frame statistics as a corner overlay.
type DebugHudModule struct {
	FontPath string
	FontSize float64
	Scale    float32
}

type debugHud struct {
	text  *TextRenderer
	scale float32

	fps float32
}

func (m DebugHudModule) Install(app *App, cmd *Commands) {
	hud := &debugHud{scale: m.Scale}
	if hud.scale <= 0 {
		hud.scale = 1
	}

	if m.FontPath != "" {
		size := m.FontSize
		if size <= 0 {
			size = 16
		}
		text, err := NewTextRenderer(m.FontPath, size)
		if err != nil {
			app.Logger().Warnf("Debug HUD font unavailable, overlay stays text-only: %v", err)
		} else {
			hud.text = text
		}
	}

	cmd.AddResources(hud, &TextOverlay{Width: 1280, Height: 720})

	app.UseSystem(
		System(debugHudSystem).
			InStage(PostRender),
	)
}

func debugHudSystem(hud *debugHud, overlay *TextOverlay, stats *FrameStats, time *Time) {
	dt := time.DtSeconds()
	if dt > 0 {
		// Exponential smoothing keeps the readout steady.
		instant := 1 / dt
		if hud.fps == 0 {
			hud.fps = instant
		} else {
			hud.fps += (instant - hud.fps) * 0.1
		}
	}

	text := fmt.Sprintf(
		"fps: %.0f\nvisible nodes: %d\ndraw keys: %d\nfar extent: %.1f",
		hud.fps, stats.VisibleNodes, stats.SortKeys, stats.FurthestDistance,
	)

	overlay.Items = overlay.Items[:0]
	overlay.Items = append(overlay.Items, TextItem{
		Text:     text,
		Position: [2]float32{8, 8},
		Scale:    hud.scale,
		Color:    [4]float32{1, 1, 1, 0.9},
	})

	if hud.text != nil {
		overlay.Vertices = hud.text.BuildVertices(overlay.Items, overlay.Width, overlay.Height)
	}
}
