package services

import (
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// ReclaimProcess desarma el proceso pid y devuelve sus frames. Primero lo pasa a BLOCKED para que no se
// planifique, suelta cada referencia de su región privada y después barre los frames que todavía figuren a
// su nombre (las tablas de páginas, o frames tomados a medias por una creación o un fork que fallaron).
// Un frame compartido que era suyo pasa al primer otro proceso que lo tenga mapeado.
func (k *Kernel) ReclaimProcess(pid int) error {
	if pid <= 0 || pid >= len(k.processes) {
		return fmt.Errorf("%w: %d", models.ErrInvalidPid, pid)
	}
	pcb := k.processes[pid]
	if err := k.TransitionProcessState(pcb, models.EstadoBlocked); err != nil {
		return err
	}

	freed := 0
	if pcb.HasTable {
		for va := uint32(memModels.ProcStartAddr); va < memModels.MemSizeVirtual; va += memModels.PageSize {
			vam := k.mm.Memory.Lookup(pcb.PageTable, va)
			if !vam.Mapped() {
				continue
			}
			if err := k.mm.Memory.Unmap(pcb.PageTable, va); err != nil {
				return models.Fatal("vmm", pid, models.ErrInvariantViolation, "unmap 0x%X: %v", va, err)
			}
			if k.releaseFrame(vam.Frame, pid) {
				freed++
			}
		}
	}

	owner := memModels.Owner(pid)
	k.mm.Ledger.OwnedBy(owner).ForEach(func(frame int) {
		if k.releaseFrame(frame, pid) {
			freed++
		}
	})

	pcb.PageTable = memModels.PageTable{}
	pcb.HasTable = false
	pcb.Registers = models.Registers{}
	if err := k.TransitionProcessState(pcb, models.EstadoFree); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("## (%d) Proceso Destruido - Frames liberados: %d - Frames libres: %d",
		pid, freed, k.mm.Ledger.FreeCount()))
	return nil
}

// releaseFrame suelta una referencia de pid sobre frame. Devuelve true si el frame quedó libre.
func (k *Kernel) releaseFrame(frame int, pid int) bool {
	page := k.mm.Ledger.Page(frame)
	freed, err := k.mm.Ledger.Release(frame)
	if err != nil {
		slog.Error(fmt.Sprintf("## (%d) Referencia a un frame sin uso: %v", pid, err))
		return false
	}
	if freed || page.Owner != memModels.Owner(pid) {
		return freed
	}

	// Sigue referenciado y era de pid: se busca un nuevo dueño.
	newOwner, found := k.findPageOwner(frame, pid)
	if !found {
		slog.Error(fmt.Sprintf("## (%d) Frame %d con refcount %d sin otro dueño, se libera",
			pid, frame, k.mm.Ledger.Page(frame).Refcount))
		k.mm.Ledger.ForceFree(frame)
		return true
	}
	if err := k.mm.Ledger.SetOwner(frame, memModels.Owner(newOwner)); err != nil {
		slog.Error(fmt.Sprintf("## (%d) No se pudo reasignar el frame %d: %v", pid, frame, err))
		return false
	}
	slog.Debug(fmt.Sprintf("## (%d) Frame %d pasa al proceso %d", pid, frame, newOwner))
	return false
}
