package services

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sisoputnfrba/tp-weensy-magiOS/cpu/models"
	kernelModels "github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
	memServices "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/services"
)

type Access int

const (
	AccessRead Access = iota
	AccessWrite
	AccessExec
)

// TLB cachea traducciones de la tabla activa. Se vacía en cada cambio de tabla.
type TLB struct {
	entries   []models.TLBEntry
	maxSize   int
	algorithm string // "FIFO" o "LRU"
	counter   int64  // para LRU, contador incremental

	hits   uint64
	misses uint64
}

func NewTLB(maxSize int, algorithm string) *TLB {
	if maxSize < 0 {
		maxSize = 0
	}
	return &TLB{
		entries:   make([]models.TLBEntry, 0, maxSize),
		maxSize:   maxSize,
		algorithm: strings.ToUpper(algorithm),
	}
}

// IsEnabled indica si la TLB tiene entradas.
func (t *TLB) IsEnabled() bool {
	return t.maxSize > 0
}

func (t *TLB) search(page int) (models.TLBEntry, bool) {
	for i := range t.entries {
		if t.entries[i].PageNumber == page {
			if t.algorithm == models.TlbLRU {
				t.counter++
				t.entries[i].LastUsed = t.counter
			}
			t.hits++
			return t.entries[i], true
		}
	}
	t.misses++
	return models.TLBEntry{}, false
}

func (t *TLB) insert(entry models.TLBEntry) {
	if !t.IsEnabled() {
		return
	}
	t.counter++
	entry.LastUsed = t.counter

	if len(t.entries) < t.maxSize {
		t.entries = append(t.entries, entry)
		return
	}

	victimIndex := 0
	if t.algorithm == models.TlbLRU {
		minUsage := t.entries[0].LastUsed
		for i, e := range t.entries {
			if e.LastUsed < minUsage {
				minUsage = e.LastUsed
				victimIndex = i
			}
		}
	}
	slog.Debug(fmt.Sprintf("TLB reemplazo: Página %d por Página %d", t.entries[victimIndex].PageNumber, entry.PageNumber))

	if t.algorithm != models.TlbLRU {
		// FIFO: se descarta la más vieja y la nueva va al final.
		copy(t.entries, t.entries[1:])
		victimIndex = len(t.entries) - 1
	}
	t.entries[victimIndex] = entry
}

// Flush descarta todas las entradas.
func (t *TLB) Flush() {
	t.entries = t.entries[:0]
}

// Stats devuelve la cantidad de aciertos y fallos.
func (t *TLB) Stats() (hits, misses uint64) {
	return t.hits, t.misses
}

// PageFault describe un acceso inválido: dirección y flags de error como los deja el hardware.
type PageFault struct {
	Addr uint32
	Err  uint32
}

// MMU traduce direcciones virtuales de usuario recorriendo la tabla de páginas en memoria física.
type MMU struct {
	memory *memServices.PhysicalMemory
	tlb    *TLB
}

func NewMMU(memory *memServices.PhysicalMemory, tlb *TLB) *MMU {
	return &MMU{memory: memory, tlb: tlb}
}

// TranslateAddress devuelve la dirección física de va en table para un acceso en modo usuario.
func (m *MMU) TranslateAddress(table memModels.PageTable, va uint32, access Access) (uint32, *PageFault) {
	pageNumber := memModels.PageNumber(va)
	offset := va % memModels.PageSize

	entry, ok := m.tlb.search(pageNumber)
	if !ok {
		vam := m.memory.Lookup(table, va)
		if !vam.Mapped() {
			return 0, m.fault(va, access, false)
		}
		entry = models.TLBEntry{PageNumber: pageNumber, Frame: vam.Frame, Writable: vam.Perm.Writable(), User: vam.Perm.User()}
		m.tlb.insert(entry)
	}

	if !entry.User || (access == AccessWrite && !entry.Writable) {
		return 0, m.fault(va, access, true)
	}
	return memModels.PageAddress(entry.Frame) + offset, nil
}

func (m *MMU) fault(va uint32, access Access, present bool) *PageFault {
	err := kernelModels.PFErrUser
	if present {
		err |= kernelModels.PFErrPresent
	}
	if access == AccessWrite {
		err |= kernelModels.PFErrWrite
	}
	return &PageFault{Addr: va, Err: err}
}

// Load lee un byte de la memoria virtual del proceso.
func (m *MMU) Load(table memModels.PageTable, va uint32, access Access) (byte, *PageFault) {
	pa, fault := m.TranslateAddress(table, va, access)
	if fault != nil {
		return 0, fault
	}
	value, err := m.memory.LoadByte(pa)
	if err != nil {
		slog.Warn(fmt.Sprintf("Acceso fuera de la memoria física: %v", err))
		return 0, m.fault(va, access, true)
	}
	return value, nil
}

// Store escribe un byte en la memoria virtual del proceso.
func (m *MMU) Store(table memModels.PageTable, va uint32, value byte) *PageFault {
	pa, fault := m.TranslateAddress(table, va, AccessWrite)
	if fault != nil {
		return fault
	}
	if err := m.memory.StoreByte(pa, value); err != nil {
		slog.Warn(fmt.Sprintf("Acceso fuera de la memoria física: %v", err))
		return m.fault(va, AccessWrite, true)
	}
	return nil
}
