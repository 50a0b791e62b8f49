package services

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
)

// Schedule elige el próximo proceso por round robin: recorre la tabla en forma circular desde el siguiente al
// actual, salteando el slot 0, y se queda con el primero RUNNABLE.
// Si no hay ninguno espera activamente; en cada vuelta completa consulta a la plataforma y cede el procesador
// al runtime. Devuelve Idle solo cuando se pidió detener el sistema.
func (k *Kernel) Schedule() models.Outcome {
	n := len(k.processes)
	pid := k.currentPid()

	for {
		for i := 1; i <= n; i++ {
			next := (pid + i) % n
			if next == 0 {
				continue
			}
			if pcb := k.processes[next]; pcb.EstadoActual == models.EstadoRunnable {
				return k.run(pcb)
			}
		}

		if k.platform.PollCancellation() {
			slog.Info("Detención solicitada sin procesos para ejecutar")
			return models.Idle()
		}
		runtime.Gosched()
	}
}

// Run arranca el sistema con el proceso pid.
func (k *Kernel) Run(pid int) (models.Outcome, error) {
	if k.halted != nil {
		return models.Idle(), fmt.Errorf("%w: %w", models.ErrHalted, k.halted)
	}
	pcb := k.Process(pid)
	if pcb == nil || pid == 0 {
		return models.Idle(), fmt.Errorf("%w: %d", models.ErrInvalidPid, pid)
	}
	if pcb.EstadoActual != models.EstadoRunnable {
		return models.Idle(), fmt.Errorf("%w: %d en estado %s", models.ErrInvalidPid, pid, pcb.EstadoActual)
	}
	return k.run(pcb), nil
}

// run deja a pcb como proceso actual con su tabla activa.
func (k *Kernel) run(pcb *models.PCB) models.Outcome {
	if k.current != pcb {
		slog.Debug(fmt.Sprintf("## (%d) Pasa a ejecutar", pcb.PID))
	}
	k.current = pcb
	k.activeTable = pcb.PageTable
	return models.Resume(pcb)
}
