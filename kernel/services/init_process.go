package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// CreateProcess carga el programa program como proceso pid: tabla de páginas propia, código y datos vía el
// cargador, y una página de pila al tope del espacio virtual. Si algo falla libera todo lo que había tomado
// y devuelve un error que distingue la causa.
func (k *Kernel) CreateProcess(pid int, program int) error {
	if pid <= 0 || pid >= len(k.processes) {
		return fmt.Errorf("%w: %d", models.ErrInvalidPid, pid)
	}
	pcb := k.processes[pid]
	if pcb.IsLive() {
		return fmt.Errorf("%w: %d (%s)", models.ErrSlotInUse, pid, pcb.EstadoActual)
	}

	table, err := k.mm.DuplicateFor(memModels.Owner(pid))
	if err != nil {
		return k.abortCreate(pid, err)
	}
	pcb.PageTable = table
	pcb.HasTable = true
	if page := k.mm.Ledger.Page(table.Frame); page.Refcount != 1 || page.Owner != memModels.Owner(pid) {
		return models.Fatal("kernel", pid, models.ErrInvariantViolation,
			"tabla nueva en frame %d con dueño %s y refcount %d", table.Frame, page.Owner, page.Refcount)
	}

	entry, err := k.loader.LoadProgram(pid, table, program)
	if err != nil {
		return k.abortCreate(pid, fmt.Errorf("%w: %w", models.ErrLoadFailed, err))
	}

	stackFrame, ok := k.mm.Ledger.AcquireFree(memModels.Owner(pid))
	if !ok {
		return k.abortCreate(pid, fmt.Errorf("pila: %w", models.ErrOutOfMemory))
	}
	k.mm.Memory.ZeroFrame(stackFrame)
	stackVA := uint32(memModels.MemSizeVirtual - memModels.PageSize)
	if err := k.mapPage(pid, table, stackVA, memModels.PageAddress(stackFrame), memModels.PermAll); err != nil {
		return err
	}

	pcb.Program = program
	pcb.Registers = models.Registers{ESP: memModels.MemSizeVirtual, EIP: entry}
	if err := k.TransitionProcessState(pcb, models.EstadoRunnable); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("## (%d) Se crea el proceso - Programa: %d - Estado: %s", pid, program, pcb.EstadoActual))
	return nil
}

// abortCreate libera lo que el proceso a medio crear haya tomado y devuelve la causa.
func (k *Kernel) abortCreate(pid int, cause error) error {
	slog.Warn(fmt.Sprintf("## (%d) No se pudo crear el proceso: %v", pid, cause))
	if err := k.ReclaimProcess(pid); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// mapPage instala una traducción de una página. Un error acá es un bug del kernel.
func (k *Kernel) mapPage(pid int, table memModels.PageTable, va, pa uint32, perm memModels.Permission) error {
	if err := k.mm.Memory.Map(table, va, pa, memModels.PageSize, perm); err != nil {
		return models.Fatal("vmm", pid, models.ErrInvariantViolation, "map 0x%X -> 0x%X: %v", va, pa, err)
	}
	return nil
}
