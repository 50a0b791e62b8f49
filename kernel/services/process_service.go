package services

import (
	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// FindFreeSlot busca el primer slot FREE a partir del 1. El slot 0 está reservado.
func (k *Kernel) FindFreeSlot() (int, bool) {
	for pid := 1; pid < len(k.processes); pid++ {
		if k.processes[pid].EstadoActual == models.EstadoFree {
			return pid, true
		}
	}
	return -1, false
}

// findPageOwner busca otro proceso vivo que tenga mapeado el frame en su región privada.
// Recorre en orden de PID y se queda con el primero: el desempate no tiene significado, solo es determinístico.
// Vivo incluye BLOCKED y BROKEN: un proceso BROKEN sigue mapeando sus frames hasta que se lo reclama.
func (k *Kernel) findPageOwner(frame int, exclude int) (int, bool) {
	for pid := 1; pid < len(k.processes); pid++ {
		pcb := k.processes[pid]
		if pid == exclude || !pcb.IsLive() || !pcb.HasTable {
			continue
		}
		for va := uint32(memModels.ProcStartAddr); va < memModels.MemSizeVirtual; va += memModels.PageSize {
			vam := k.mm.Memory.Lookup(pcb.PageTable, va)
			if vam.Mapped() && vam.Frame == frame {
				return pid, true
			}
		}
	}
	return -1, false
}
