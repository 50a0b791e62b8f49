package services

import (
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// ForkProcess crea un hijo de parent en el primer slot libre. Las páginas escribibles se copian a frames nuevos
// del hijo; las de solo lectura se comparten sumando una referencia. El hijo hereda los registros con EAX = 0.
//
// Si falta memoria a mitad de camino el hijo se desarma con ReclaimProcess y el slot vuelve a FREE.
func (k *Kernel) ForkProcess(parent *models.PCB) (int, error) {
	childPid, ok := k.FindFreeSlot()
	if !ok {
		return -1, models.ErrNoSlot
	}
	child := k.processes[childPid]

	table, err := k.mm.DuplicateFor(memModels.Owner(childPid))
	if err != nil {
		return -1, k.abortFork(parent.PID, childPid, err)
	}
	child.PageTable = table
	child.HasTable = true

	copied, shared := 0, 0
	for va := uint32(memModels.ProcStartAddr); va < memModels.MemSizeVirtual; va += memModels.PageSize {
		vam := k.mm.Memory.Lookup(parent.PageTable, va)
		if !vam.Mapped() {
			continue
		}

		if vam.Perm.Writable() {
			frame, ok := k.mm.Ledger.AcquireFree(memModels.Owner(childPid))
			if !ok {
				return -1, k.abortFork(parent.PID, childPid, fmt.Errorf("copia de 0x%X: %w", va, models.ErrOutOfMemory))
			}
			k.mm.Memory.CopyFrame(frame, vam.Frame)
			if err := k.mapPage(childPid, table, va, memModels.PageAddress(frame), vam.Perm); err != nil {
				return -1, err
			}
			copied++
			continue
		}

		if err := k.mm.Ledger.Retain(vam.Frame); err != nil {
			return -1, models.Fatal("fork", parent.PID, models.ErrInvariantViolation,
				"frame compartido %d en 0x%X: %v", vam.Frame, va, err)
		}
		if err := k.mapPage(childPid, table, va, vam.PA, vam.Perm); err != nil {
			return -1, err
		}
		shared++
	}

	child.Program = parent.Program
	child.Registers = parent.Registers
	child.Registers.SetReturn(0)
	if err := k.TransitionProcessState(child, models.EstadoRunnable); err != nil {
		return -1, err
	}

	slog.Info(fmt.Sprintf("## (%d) Se crea el proceso por FORK de %d - Copiadas: %d - Compartidas: %d",
		childPid, parent.PID, copied, shared))
	return childPid, nil
}

func (k *Kernel) abortFork(parentPid, childPid int, cause error) error {
	slog.Warn(fmt.Sprintf("## (%d) FORK fallido - Hijo: %d - %v", parentPid, childPid, cause))
	if err := k.ReclaimProcess(childPid); err != nil {
		return err
	}
	return cause
}
