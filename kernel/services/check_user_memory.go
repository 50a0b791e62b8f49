package services

import (
	"slices"

	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// CheckInvariants recorre el ledger y todas las tablas de páginas vivas y verifica que la contabilidad de
// frames cierre. Cualquier diferencia es un error fatal ErrInvariantViolation.
func (k *Kernel) CheckInvariants() error {
	ledger := k.mm.Ledger
	pages := ledger.Snapshot()

	if k.processes[0].EstadoActual != models.EstadoFree {
		return violation(0, "el slot 0 está en estado %s", k.processes[0].EstadoActual)
	}

	for frame, page := range pages {
		if (page.Refcount == 0) != (page.Owner == memModels.OwnerFree) {
			return violation(0, "frame %d con dueño %s y refcount %d", frame, page.Owner, page.Refcount)
		}
		if page.Owner.IsProcess() {
			pcb := k.Process(int(page.Owner))
			if pcb == nil || !pcb.IsLive() {
				return violation(int(page.Owner), "frame %d a nombre de un proceso inexistente", frame)
			}
		}
	}

	for _, frame := range k.mm.TableFrames(k.mm.KernelTable) {
		if page := pages[frame]; page.Owner != memModels.OwnerKernel || page.Refcount != 1 {
			return violation(0, "tabla del kernel en frame %d con dueño %s y refcount %d", frame, page.Owner, page.Refcount)
		}
	}

	// Referencias esperadas: una por cada mapeo de región privada, más una por frame de tabla de páginas.
	expected := make([]int, len(pages))
	mappedBy := make([][]int, len(pages))
	for _, pcb := range k.processes[1:] {
		if !pcb.IsLive() || !pcb.HasTable {
			continue
		}
		owner := memModels.Owner(pcb.PID)

		tableFrames := k.mm.TableFrames(pcb.PageTable)
		if len(tableFrames) != 2 {
			return violation(pcb.PID, "tabla de páginas %d sin segundo nivel", pcb.PageTable.Frame)
		}
		for _, frame := range tableFrames {
			if frame >= len(pages) || pages[frame].Owner != owner || pages[frame].Refcount != 1 {
				return violation(pcb.PID, "frame de tabla %d no es exclusivo del proceso", frame)
			}
			expected[frame]++
			mappedBy[frame] = append(mappedBy[frame], pcb.PID)
		}

		for va := uint32(0); va < memModels.ProcStartAddr; va += memModels.PageSize {
			want := k.mm.Memory.Lookup(k.mm.KernelTable, va)
			if got := k.mm.Memory.Lookup(pcb.PageTable, va); got != want {
				return violation(pcb.PID, "la región del kernel difiere en 0x%X", va)
			}
		}

		for va := uint32(memModels.ProcStartAddr); va < memModels.MemSizeVirtual; va += memModels.PageSize {
			vam := k.mm.Memory.Lookup(pcb.PageTable, va)
			if !vam.Mapped() {
				continue
			}
			if vam.Frame >= len(pages) {
				return violation(pcb.PID, "0x%X apunta fuera de la memoria física (frame %d)", va, vam.Frame)
			}
			if page := pages[vam.Frame]; page.Owner == memModels.OwnerKernel || page.Owner == memModels.OwnerReserved {
				return violation(pcb.PID, "0x%X apunta al frame %d de %s", va, vam.Frame, page.Owner)
			}
			expected[vam.Frame]++
			mappedBy[vam.Frame] = append(mappedBy[vam.Frame], pcb.PID)
		}
	}

	for frame, page := range pages {
		if page.Owner == memModels.OwnerKernel || page.Owner == memModels.OwnerReserved {
			continue
		}
		if page.Refcount != expected[frame] {
			return violation(0, "frame %d con refcount %d y %d referencias", frame, page.Refcount, expected[frame])
		}
		if page.Owner.IsProcess() && !slices.Contains(mappedBy[frame], int(page.Owner)) {
			return violation(int(page.Owner), "frame %d a nombre de un proceso que no lo mapea", frame)
		}
	}
	return nil
}

func violation(pid int, format string, args ...interface{}) error {
	return models.Fatal("memoria", pid, models.ErrInvariantViolation, format, args...)
}
