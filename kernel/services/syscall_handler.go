package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// HandleTrap es el único punto de entrada desde la CPU. Guarda los registros del proceso en ejecución,
// vuelve a la tabla del kernel, verifica la memoria y atiende la causa. Devuelve el proceso con el que hay
// que continuar, o Idle si se pidió detener el sistema.
//
// Un error devuelto es siempre fatal: el kernel queda detenido y toda llamada posterior falla con ErrHalted.
func (k *Kernel) HandleTrap(cause models.TrapCause, regs models.Registers) (models.Outcome, error) {
	if k.halted != nil {
		return models.Idle(), fmt.Errorf("%w: %w", models.ErrHalted, k.halted)
	}
	if k.current == nil {
		return k.halt(models.Fatal("trap", 0, models.ErrKernelFault, "trap %s sin proceso en ejecución", cause))
	}

	current := k.current
	current.Registers = regs
	k.activeTable = k.mm.KernelTable

	if k.platform.PollCancellation() {
		slog.Info(fmt.Sprintf("## (%d) Detención solicitada - Trap: %s", current.PID, cause))
		return models.Idle(), nil
	}

	if err := k.CheckInvariants(); err != nil {
		return k.halt(err)
	}
	k.visualize()

	slog.Debug(fmt.Sprintf("## (%d) Trap: %s", current.PID, cause))

	switch cause {
	case models.TrapGetPid:
		current.Registers.SetReturn(int32(current.PID))

	case models.TrapYield:
		return k.Schedule(), nil

	case models.TrapPageAlloc:
		addr := current.Registers.EAX
		if err := k.PageAlloc(current, addr); err != nil {
			if models.IsFatal(err) {
				return k.halt(err)
			}
			slog.Warn(fmt.Sprintf("## (%d) PAGE_ALLOC 0x%X fallido: %v", current.PID, addr, err))
			current.Registers.SetReturn(-1)
		} else {
			current.Registers.SetReturn(0)
		}

	case models.TrapFork:
		child, err := k.ForkProcess(current)
		if err != nil {
			if models.IsFatal(err) {
				return k.halt(err)
			}
			current.Registers.SetReturn(-1)
		} else {
			current.Registers.SetReturn(int32(child))
		}

	case models.TrapExit:
		if err := k.ReclaimProcess(current.PID); err != nil {
			return k.halt(err)
		}

	case models.TrapTimer:
		k.ticks++
		return k.Schedule(), nil

	case models.TrapPageFault:
		if err := k.handlePageFault(current); err != nil {
			return k.halt(err)
		}

	case models.TrapPanic:
		return k.halt(models.Fatal("trap", current.PID, models.ErrUserPanic, "EIP 0x%X", current.Registers.EIP))

	default:
		return k.halt(models.Fatal("trap", current.PID, models.ErrUnknownTrap, "causa %d", int(cause)))
	}

	if current.EstadoActual == models.EstadoRunnable {
		return k.run(current), nil
	}
	return k.Schedule(), nil
}

// PageAlloc mapea un frame nuevo de pcb en addr con Present|Writable|User. Primero valida la dirección y
// recién después toma el frame; si addr ya estaba mapeada se suelta la referencia anterior.
func (k *Kernel) PageAlloc(pcb *models.PCB, addr uint32) error {
	if addr%memModels.PageSize != 0 || addr < memModels.ProcStartAddr || addr >= memModels.MemSizeVirtual {
		return fmt.Errorf("%w: 0x%X", models.ErrInvalidAddr, addr)
	}

	frame, ok := k.mm.Ledger.AcquireFree(memModels.Owner(pcb.PID))
	if !ok {
		return models.ErrOutOfMemory
	}
	k.mm.Memory.ZeroFrame(frame)

	previous := k.mm.Memory.Lookup(pcb.PageTable, addr)
	if err := k.mapPage(pcb.PID, pcb.PageTable, addr, memModels.PageAddress(frame), memModels.PermAll); err != nil {
		return err
	}
	if previous.Mapped() {
		k.releaseFrame(previous.Frame, pcb.PID)
	}

	slog.Debug(fmt.Sprintf("## (%d) PAGE_ALLOC 0x%X -> frame %d", pcb.PID, addr, frame))
	return nil
}

// handlePageFault decide según el modo en que ocurrió el fallo: en modo kernel es fatal, en modo usuario
// el proceso queda BROKEN para siempre.
func (k *Kernel) handlePageFault(pcb *models.PCB) error {
	regs := pcb.Registers
	operation := "lectura"
	if regs.Err&models.PFErrWrite != 0 {
		operation = "escritura"
	}
	problem := "página no presente"
	if regs.Err&models.PFErrPresent != 0 {
		problem = "violación de protección"
	}

	if regs.Err&models.PFErrUser == 0 {
		return models.Fatal("trap", pcb.PID, models.ErrKernelFault, "%s en 0x%X, EIP 0x%X: %s",
			operation, regs.FaultAddr, regs.EIP, problem)
	}

	slog.Warn(fmt.Sprintf("## (%d) PAGE FAULT - %s en 0x%X - EIP 0x%X - %s",
		pcb.PID, operation, regs.FaultAddr, regs.EIP, problem))
	return k.TransitionProcessState(pcb, models.EstadoBroken)
}

// halt detiene el kernel con un error fatal.
func (k *Kernel) halt(err error) (models.Outcome, error) {
	if !models.IsFatal(err) {
		err = models.Fatal("kernel", k.currentPid(), models.ErrInvariantViolation, "%v", err)
	}
	k.halted = err

	var fatal *models.FatalError
	errors.As(err, &fatal)
	slog.Error(fmt.Sprintf("## (%d) Kernel detenido - Módulo: %s - %v", fatal.Pid, fatal.Module, err))
	return models.Idle(), err
}

func (k *Kernel) currentPid() int {
	if k.current == nil {
		return 0
	}
	return k.current.PID
}
