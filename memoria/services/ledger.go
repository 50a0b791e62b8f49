package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
	"github.com/sisoputnfrba/tp-weensy-magiOS/utils/list"
)

var (
	ErrAlreadyAllocated = errors.New("frame ya asignado")
	ErrInvalidAddress   = errors.New("dirección física inválida")
	ErrFrameNotInUse    = errors.New("frame no referenciado")
)

// Ledger lleva dueño y cantidad de referencias de cada frame físico.
// Mantiene refcount == 0 <=> owner == FREE.
type Ledger struct {
	pages []models.PhysicalPage
}

// NewLedger arma el ledger con el estado inicial de la máquina: frame 0 y el agujero de E/S reservados,
// imagen y pila del kernel con dueño KERNEL, todo lo demás libre.
func NewLedger(cfg models.Config) *Ledger {
	ledger := &Ledger{pages: make([]models.PhysicalPage, cfg.NumPages())}

	for pn := range ledger.pages {
		addr := models.PageAddress(pn)
		owner := models.OwnerFree
		switch {
		case isReserved(addr):
			owner = models.OwnerReserved
		case (addr >= models.KernelStartAddr && addr < uint32(cfg.KernelEnd)) || addr == models.KernelStackTop-models.PageSize:
			owner = models.OwnerKernel
		}
		ledger.pages[pn].Owner = owner
		if owner != models.OwnerFree {
			ledger.pages[pn].Refcount = 1
		}
	}
	return ledger
}

func isReserved(addr uint32) bool {
	return addr == 0 || (addr >= models.IOHoleStart && addr < models.ProcStartAddr)
}

// Len devuelve la cantidad de frames administrados.
func (l *Ledger) Len() int {
	return len(l.pages)
}

// Page devuelve la entrada de un frame.
func (l *Ledger) Page(frame int) models.PhysicalPage {
	return l.pages[frame]
}

// FindFreeFrame busca linealmente el primer frame libre. El orden (frame más bajo primero) es determinístico.
func (l *Ledger) FindFreeFrame() (int, bool) {
	for pn, page := range l.pages {
		if page.IsFree() {
			return pn, true
		}
	}
	return -1, false
}

// Allocate asigna el frame de la dirección física addr al dueño indicado.
// Falla si addr no está alineada, está fuera de la memoria física o el frame ya está referenciado.
func (l *Ledger) Allocate(addr uint32, owner models.Owner) error {
	if addr%models.PageSize != 0 || models.PageNumber(addr) >= len(l.pages) {
		return fmt.Errorf("%w: 0x%X", ErrInvalidAddress, addr)
	}
	if owner == models.OwnerFree {
		return fmt.Errorf("%w: dueño FREE", ErrInvalidAddress)
	}
	pn := models.PageNumber(addr)
	if l.pages[pn].Refcount != 0 {
		return fmt.Errorf("%w: frame %d (%s)", ErrAlreadyAllocated, pn, l.pages[pn].Owner)
	}
	l.pages[pn] = models.PhysicalPage{Owner: owner, Refcount: 1}
	return nil
}

// AcquireFree busca un frame libre y lo asigna. Devuelve false si no queda memoria.
func (l *Ledger) AcquireFree(owner models.Owner) (int, bool) {
	pn, found := l.FindFreeFrame()
	if !found {
		slog.Debug("No hay frames libres disponibles para asignar", "owner", owner.String())
		return -1, false
	}
	if err := l.Allocate(models.PageAddress(pn), owner); err != nil {
		return -1, false
	}
	return pn, true
}

// Retain suma una referencia a un frame en uso.
func (l *Ledger) Retain(frame int) error {
	if err := l.checkInUse(frame); err != nil {
		return err
	}
	l.pages[frame].Refcount++
	return nil
}

// Release quita una referencia. Si era la última el frame vuelve a FREE y se devuelve true.
func (l *Ledger) Release(frame int) (bool, error) {
	if err := l.checkInUse(frame); err != nil {
		return false, err
	}
	l.pages[frame].Refcount--
	if l.pages[frame].Refcount == 0 {
		l.pages[frame].Owner = models.OwnerFree
		return true, nil
	}
	return false, nil
}

// SetOwner cambia el dueño de un frame en uso por otro proceso.
func (l *Ledger) SetOwner(frame int, owner models.Owner) error {
	if err := l.checkInUse(frame); err != nil {
		return err
	}
	if !owner.IsProcess() {
		return fmt.Errorf("%w: no se puede reasignar el frame %d a %s", ErrInvalidAddress, frame, owner)
	}
	l.pages[frame].Owner = owner
	return nil
}

// ForceFree libera un frame sin importar sus referencias. Solo se usa para no perder frames ante una inconsistencia.
func (l *Ledger) ForceFree(frame int) {
	if frame < 0 || frame >= len(l.pages) {
		return
	}
	l.pages[frame] = models.PhysicalPage{Owner: models.OwnerFree}
}

// OwnedBy devuelve los frames cuyo dueño es owner, en orden creciente.
func (l *Ledger) OwnedBy(owner models.Owner) *list.ArrayList[int] {
	frames := list.NewArrayList[int](8)
	for pn, page := range l.pages {
		if page.Owner == owner && page.Refcount > 0 {
			frames.Add(pn)
		}
	}
	return frames
}

// FreeCount devuelve la cantidad de frames libres.
func (l *Ledger) FreeCount() int {
	count := 0
	for _, page := range l.pages {
		if page.IsFree() {
			count++
		}
	}
	return count
}

// TotalRefcount devuelve la suma de referencias de todos los frames.
func (l *Ledger) TotalRefcount() int {
	total := 0
	for _, page := range l.pages {
		total += page.Refcount
	}
	return total
}

// Snapshot devuelve una copia del ledger.
func (l *Ledger) Snapshot() []models.PhysicalPage {
	pages := make([]models.PhysicalPage, len(l.pages))
	copy(pages, l.pages)
	return pages
}

func (l *Ledger) checkInUse(frame int) error {
	if frame < 0 || frame >= len(l.pages) {
		return fmt.Errorf("%w: frame %d", ErrInvalidAddress, frame)
	}
	if l.pages[frame].Refcount == 0 {
		return fmt.Errorf("%w: frame %d", ErrFrameNotInUse, frame)
	}
	return nil
}
