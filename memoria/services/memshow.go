package services

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

const (
	memshowColumns = 64
	pidGlyphs      = "123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	ansiDim     = "\x1b[2m"
	ansiReverse = "\x1b[7m"
	ansiReset   = "\x1b[0m"
)

// OwnerGlyph devuelve el carácter con el que se dibuja un dueño: K kernel, R reservado, '.' libre, 1..Z procesos.
func OwnerGlyph(owner models.Owner) byte {
	switch {
	case owner == models.OwnerKernel:
		return 'K'
	case owner == models.OwnerReserved:
		return 'R'
	case owner == models.OwnerFree:
		return '.'
	case int(owner) <= len(pidGlyphs):
		return pidGlyphs[owner-1]
	default:
		return '?'
	}
}

// TextRenderer dibuja los mapas de memoria en texto, 64 páginas por fila.
// Con ANSI los frames compartidos se atenúan y las páginas de usuario se muestran en video inverso.
type TextRenderer struct {
	ANSI bool
}

// RenderPhysical dibuja el mapa de memoria física.
func (r TextRenderer) RenderPhysical(w io.Writer, pages []models.PhysicalPage) error {
	out := bufio.NewWriter(w)
	fmt.Fprintln(out, "PHYSICAL MEMORY")
	for pn, page := range pages {
		if pn%memshowColumns == 0 {
			fmt.Fprintf(out, "0x%06X ", models.PageAddress(pn))
		}
		owner := page.Owner
		if page.Refcount == 0 {
			owner = models.OwnerFree
		}
		r.writeGlyph(out, OwnerGlyph(owner), page.Refcount > 1, false)
		if pn%memshowColumns == memshowColumns-1 || pn == len(pages)-1 {
			fmt.Fprintln(out)
		}
	}
	return out.Flush()
}

// RenderVirtual dibuja el espacio de direcciones name. Las páginas sin mapear quedan en blanco.
func (r TextRenderer) RenderVirtual(w io.Writer, name string, mappings []models.VirtualMapping, pages []models.PhysicalPage) error {
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "VIRTUAL ADDRESS SPACE FOR %s\n", name)
	for vpn, vam := range mappings {
		if vpn%memshowColumns == 0 {
			fmt.Fprintf(out, "0x%06X ", models.PageAddress(vpn))
		}
		switch {
		case !vam.Mapped():
			out.WriteByte(' ')
		case vam.Frame >= len(pages):
			out.WriteByte('!')
		default:
			page := pages[vam.Frame]
			owner := page.Owner
			if page.Refcount == 0 {
				owner = models.OwnerFree
			}
			r.writeGlyph(out, OwnerGlyph(owner), page.Refcount > 1, vam.Perm.User())
		}
		if vpn%memshowColumns == memshowColumns-1 || vpn == len(mappings)-1 {
			fmt.Fprintln(out)
		}
	}
	return out.Flush()
}

func (r TextRenderer) writeGlyph(out *bufio.Writer, glyph byte, shared, user bool) {
	if !r.ANSI || (!shared && !user) {
		out.WriteByte(glyph)
		return
	}
	if shared {
		out.WriteString(ansiDim)
	}
	if user {
		out.WriteString(ansiReverse)
	}
	out.WriteByte(glyph)
	out.WriteString(ansiReset)
}

// ConsoleMemshow es un visualizador que vuelca el mapa físico y el del proceso actual cada Every ticks.
type ConsoleMemshow struct {
	Writer   io.Writer
	Every    uint
	Renderer TextRenderer

	lastTicks uint
	started   bool
}

// Visualize dibuja la foto si pasaron al menos Every ticks desde el último dibujo.
func (c *ConsoleMemshow) Visualize(snapshot *models.MemorySnapshot) {
	if c.started && snapshot.Ticks-c.lastTicks < max(c.Every, 1) {
		return
	}
	c.started = true
	c.lastTicks = snapshot.Ticks

	_ = c.Renderer.RenderPhysical(c.Writer, snapshot.Physical)
	if process, ok := snapshot.Process(snapshot.Current); ok {
		_ = c.Renderer.RenderVirtual(c.Writer, fmt.Sprintf("%d", process.Pid), process.Pages, snapshot.Physical)
	}
}
