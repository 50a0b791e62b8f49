package services

import (
	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// Snapshot arma una copia del estado de la memoria: el ledger completo y el espacio de direcciones de cada
// proceso vivo.
func (k *Kernel) Snapshot() *memModels.MemorySnapshot {
	snapshot := &memModels.MemorySnapshot{
		Ticks:    k.ticks,
		Current:  k.currentPid(),
		Physical: k.mm.Ledger.Snapshot(),
	}

	for _, pcb := range k.processes[1:] {
		if !pcb.IsLive() || !pcb.HasTable {
			continue
		}
		snapshot.Processes = append(snapshot.Processes, k.addressSpace(pcb))
	}
	return snapshot
}

func (k *Kernel) addressSpace(pcb *models.PCB) memModels.AddressSpaceSnapshot {
	pages := make([]memModels.VirtualMapping, 0, memModels.MemSizeVirtual/memModels.PageSize)
	for va := uint32(0); va < memModels.MemSizeVirtual; va += memModels.PageSize {
		pages = append(pages, k.mm.Memory.Lookup(pcb.PageTable, va))
	}
	return memModels.AddressSpaceSnapshot{Pid: pcb.PID, State: string(pcb.EstadoActual), Pages: pages}
}

// visualize publica una foto a los visualizadores cuando cambió la cantidad de ticks.
func (k *Kernel) visualize() {
	if len(k.visualizers) == 0 || (k.visualized && k.lastVisualized == k.ticks) {
		return
	}
	k.visualized = true
	k.lastVisualized = k.ticks

	snapshot := k.Snapshot()
	for _, v := range k.visualizers {
		v.Visualize(snapshot)
	}
}
