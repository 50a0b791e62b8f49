package services

import (
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
)

// Transiciones permitidas. BLOCKED solo se usa mientras se desarma un proceso.
var legalTransitions = map[models.Estado][]models.Estado{
	models.EstadoFree:     {models.EstadoRunnable, models.EstadoBlocked},
	models.EstadoRunnable: {models.EstadoBlocked, models.EstadoBroken, models.EstadoFree},
	models.EstadoBlocked:  {models.EstadoRunnable, models.EstadoFree},
	models.EstadoBroken:   {models.EstadoBlocked},
}

// TransitionProcessState cambia el estado de un proceso. Una transición fuera de la máquina de estados es un
// error fatal: indica que el kernel perdió la cuenta de sus procesos.
func (k *Kernel) TransitionProcessState(pcb *models.PCB, newState models.Estado) error {
	oldState := pcb.EstadoActual
	if oldState == newState {
		return nil
	}

	allowed := false
	for _, next := range legalTransitions[oldState] {
		if next == newState {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.Fatal("kernel", pcb.PID, models.ErrIllegalTransition, "%s -> %s", oldState, newState)
	}

	pcb.EstadoActual = newState
	if newState == models.EstadoBroken {
		k.broken.Add(pcb.PID)
	}

	slog.Debug(fmt.Sprintf("## (%d) Pasa del estado %s al estado %s", pcb.PID, oldState, newState))
	return nil
}
