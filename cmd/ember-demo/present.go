package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/manifest"
	"github.com/lixenwraith/ember/render"
)

// draw paints the frame state: world X/Y mapped onto terminal cells
// around the screen centre, plus a status line.
func draw(screen tcell.Screen, eng *manifest.Engine) {
	screen.Clear()
	width, height := screen.Size()
	cx, cy := width/2, height/2

	fs, ok := engine.GetResource[*render.FrameState](eng.World.Resources)
	if !ok {
		screen.Show()
		return
	}

	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	for _, r := range fs.Renderables {
		x := cx + int(r.Transform.Position.X)
		// Terminal cells are taller than wide; halve Y so orbits look round
		y := cy - int(r.Transform.Position.Y/2)
		if x < 0 || x >= width || y < 0 || y >= height {
			continue
		}
		glyph := '*'
		if r.Name != "" {
			glyph = rune(r.Name[0])
		}
		screen.SetContent(x, y, glyph, nil, style)
	}

	status := fmt.Sprintf(" mode=%s frame=%d fraction=%.2f entities=%d cameras=%d [p pause, esc quit] ",
		eng.Loop.Mode(), fs.Frame, fs.Fraction, len(fs.Renderables), len(fs.Cameras))
	statusStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	for i, ch := range status {
		if i >= width {
			break
		}
		screen.SetContent(i, height-1, ch, nil, statusStyle)
	}

	screen.Show()
}
