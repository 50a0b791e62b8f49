package services

import (
	"fmt"
	"image/color"
	"io"
	"log/slog"

	"github.com/fogleman/gg"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

const (
	pngMargin      = 8
	pngLabelWidth  = 72
	pngTitleHeight = 18
)

// Paleta CGA: kernel magenta, reservado y libre gris, procesos rotando rojo/verde/azul/amarillo/blanco.
var (
	cgaKernel   = color.RGBA{0xFF, 0x55, 0xFF, 0xFF}
	cgaReserved = color.RGBA{0xAA, 0xAA, 0xAA, 0xFF}
	cgaFree     = color.RGBA{0x40, 0x40, 0x40, 0xFF}
	cgaProcess  = []color.RGBA{
		{0xFF, 0x55, 0x55, 0xFF},
		{0x55, 0xFF, 0x55, 0xFF},
		{0x55, 0x55, 0xFF, 0xFF},
		{0xFF, 0xFF, 0x55, 0xFF},
		{0xFF, 0xFF, 0xFF, 0xFF},
	}
	pngBackground = color.RGBA{0x00, 0x00, 0x00, 0xFF}
)

// OwnerColor devuelve el color de un dueño. Los frames compartidos se oscurecen.
func OwnerColor(owner models.Owner, shared bool) color.RGBA {
	var c color.RGBA
	switch {
	case owner == models.OwnerKernel:
		c = cgaKernel
	case owner == models.OwnerReserved:
		c = cgaReserved
	case owner.IsProcess():
		c = cgaProcess[(int(owner)-1)%len(cgaProcess)]
	default:
		c = cgaFree
	}
	if shared {
		c = color.RGBA{c.R / 2, c.G / 2, c.B / 2, c.A}
	}
	return c
}

// PNGRenderer dibuja la foto de memoria como una grilla de celdas, una por página.
type PNGRenderer struct {
	CellSize int
}

func (r PNGRenderer) cell() int {
	if r.CellSize <= 0 {
		return 8
	}
	return r.CellSize
}

// Render dibuja el mapa físico y, si pid está vivo en la foto, su espacio de direcciones debajo.
func (r PNGRenderer) Render(snapshot *models.MemorySnapshot, pid int) *gg.Context {
	cell := r.cell()
	physRows := rowsFor(len(snapshot.Physical))
	virtRows := 0
	process, hasProcess := snapshot.Process(pid)
	if hasProcess {
		virtRows = rowsFor(len(process.Pages))
	}

	width := pngMargin*2 + pngLabelWidth + memshowColumns*cell
	height := pngMargin*2 + pngTitleHeight + physRows*cell
	if hasProcess {
		height += pngTitleHeight + pngMargin + virtRows*cell
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(pngBackground)
	dc.Clear()

	y := float64(pngMargin)
	dc.SetColor(color.White)
	dc.DrawString(fmt.Sprintf("PHYSICAL MEMORY  ticks=%d", snapshot.Ticks), pngMargin, y+12)
	y += pngTitleHeight
	for pn, page := range snapshot.Physical {
		owner := page.Owner
		if page.Refcount == 0 {
			owner = models.OwnerFree
		}
		r.drawCell(dc, pn, y, OwnerColor(owner, page.Refcount > 1))
	}

	if hasProcess {
		y += float64(physRows*cell + pngMargin)
		dc.SetColor(color.White)
		dc.DrawString(fmt.Sprintf("VIRTUAL ADDRESS SPACE FOR %d (%s)", process.Pid, process.State), pngMargin, y+12)
		y += pngTitleHeight
		for vpn, vam := range process.Pages {
			if !vam.Mapped() || vam.Frame >= len(snapshot.Physical) {
				continue
			}
			page := snapshot.Physical[vam.Frame]
			r.drawCell(dc, vpn, y, OwnerColor(page.Owner, page.Refcount > 1))
		}
	}
	return dc
}

func (r PNGRenderer) drawCell(dc *gg.Context, index int, top float64, c color.RGBA) {
	cell := float64(r.cell())
	row := index / memshowColumns
	col := index % memshowColumns
	y := top + float64(row)*cell
	if col == 0 {
		dc.SetColor(color.White)
		dc.DrawString(fmt.Sprintf("0x%06X", models.PageAddress(index)), pngMargin, y+cell)
	}
	dc.SetColor(c)
	dc.DrawRectangle(float64(pngMargin+pngLabelWidth)+float64(col)*cell, y, cell-1, cell-1)
	dc.Fill()
}

func rowsFor(n int) int {
	return (n + memshowColumns - 1) / memshowColumns
}

// Encode escribe la imagen en formato PNG.
func (r PNGRenderer) Encode(w io.Writer, snapshot *models.MemorySnapshot, pid int) error {
	return r.Render(snapshot, pid).EncodePNG(w)
}

// PNGMemshow es un visualizador que guarda la imagen en disco cada Every ticks.
type PNGMemshow struct {
	Path     string
	Every    uint
	Renderer PNGRenderer

	lastTicks uint
	started   bool
}

// Visualize guarda la foto del proceso actual si corresponde según Every.
func (p *PNGMemshow) Visualize(snapshot *models.MemorySnapshot) {
	if p.started && snapshot.Ticks-p.lastTicks < max(p.Every, 1) {
		return
	}
	p.started = true
	p.lastTicks = snapshot.Ticks

	if err := p.Renderer.Render(snapshot, snapshot.Current).SavePNG(p.Path); err != nil {
		slog.Warn(fmt.Sprintf("No se pudo guardar el mapa de memoria en %s: %v", p.Path, err))
	}
}
