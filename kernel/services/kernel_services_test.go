package services

import (
	"bytes"
	"testing"

	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
	memServices "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/services"
)

// Programas de prueba: el 0 tiene código y datos, el 1 solo código.
const (
	progCodeAndData = 0
	progCodeOnly    = 1
)

type fakePlatform struct {
	stop     bool
	polls    int
	maxPolls int
}

func (p *fakePlatform) PollCancellation() bool {
	p.polls++
	return p.stop || p.polls > p.maxPolls
}

type recordingVisualizer struct {
	snapshots []*memModels.MemorySnapshot
}

func (v *recordingVisualizer) Visualize(snapshot *memModels.MemorySnapshot) {
	v.snapshots = append(v.snapshots, snapshot)
}

func newTestKernel(t *testing.T, nproc int) (*Kernel, *fakePlatform) {
	t.Helper()
	mm, err := memServices.NewMemoryManager(memModels.DefaultConfig())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	loader := memServices.NewImageLoader(mm, map[int]memModels.ProgramImage{
		progCodeAndData: {
			Name:      "datos",
			LinkAddr:  memModels.ProcStartAddr,
			Entry:     memModels.ProcStartAddr,
			Code:      bytes.Repeat([]byte{0x11}, 64),
			DataPages: 1,
		},
		progCodeOnly: {
			Name:     "codigo",
			LinkAddr: memModels.ProcStartAddr + 0x40000,
			Entry:    memModels.ProcStartAddr + 0x40000,
			Code:     bytes.Repeat([]byte{0x22}, memModels.PageSize+1),
		},
	})
	platform := &fakePlatform{maxPolls: 100000}
	return NewKernel(mm, nproc, loader, platform), platform
}

func mustCreate(t *testing.T, k *Kernel, pid, program int) *models.PCB {
	t.Helper()
	if err := k.CreateProcess(pid, program); err != nil {
		t.Fatalf("Expected process %d created, got %v", pid, err)
	}
	return k.Process(pid)
}

func mustRun(t *testing.T, k *Kernel, pid int) {
	t.Helper()
	outcome, err := k.Run(pid)
	if err != nil || outcome.Kind != models.OutcomeResume || outcome.PCB.PID != pid {
		t.Fatalf("Expected to resume %d, got %+v (%v)", pid, outcome, err)
	}
}

// trap simula una interrupción del proceso actual con sus registros guardados, modificados por edit.
func trap(t *testing.T, k *Kernel, cause models.TrapCause, edit func(*models.Registers)) (models.Outcome, error) {
	t.Helper()
	regs := k.Current().Registers
	if edit != nil {
		edit(&regs)
	}
	return k.HandleTrap(cause, regs)
}

func assertInvariants(t *testing.T, k *Kernel) {
	t.Helper()
	if err := k.CheckInvariants(); err != nil {
		t.Fatalf("Expected memory invariants to hold, got %v", err)
	}
}

func ledgerState(k *Kernel) []memModels.PhysicalPage {
	return k.Memory().Ledger.Snapshot()
}

func TestNewKernel(t *testing.T) {
	k, _ := newTestKernel(t, 4)

	if k.Nproc() != 4 {
		t.Errorf("Expected 4 slots, got %d", k.Nproc())
	}
	for pid := 0; pid < k.Nproc(); pid++ {
		if pcb := k.Process(pid); pcb.PID != pid || pcb.EstadoActual != models.EstadoFree {
			t.Errorf("Expected slot %d FREE, got %+v", pid, pcb)
		}
	}
	if k.Process(-1) != nil || k.Process(4) != nil {
		t.Errorf("Expected nil outside the table")
	}
	if k.ActiveTable() != k.Memory().KernelTable {
		t.Errorf("Expected the kernel table active at boot")
	}
	assertInvariants(t, k)
}

func TestFindFreeSlot(t *testing.T) {
	k, _ := newTestKernel(t, 3)

	pid, ok := k.FindFreeSlot()
	if !ok || pid != 1 {
		t.Errorf("Expected slot 1, got %d (%v)", pid, ok)
	}

	mustCreate(t, k, 1, progCodeAndData)
	mustCreate(t, k, 2, progCodeOnly)
	if _, ok := k.FindFreeSlot(); ok {
		t.Errorf("Expected no free slot")
	}
}

func TestTransitionProcessState(t *testing.T) {
	tests := []struct {
		from, to models.Estado
		legal    bool
	}{
		{models.EstadoFree, models.EstadoRunnable, true},
		{models.EstadoFree, models.EstadoBlocked, true},
		{models.EstadoRunnable, models.EstadoBlocked, true},
		{models.EstadoRunnable, models.EstadoBroken, true},
		{models.EstadoRunnable, models.EstadoFree, true},
		{models.EstadoBlocked, models.EstadoRunnable, true},
		{models.EstadoBlocked, models.EstadoFree, true},
		{models.EstadoBroken, models.EstadoBlocked, true},
		{models.EstadoBroken, models.EstadoRunnable, false},
		{models.EstadoBroken, models.EstadoFree, false},
		{models.EstadoFree, models.EstadoBroken, false},
		{models.EstadoBlocked, models.EstadoBroken, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			k, _ := newTestKernel(t, 2)
			pcb := &models.PCB{PID: 1, EstadoActual: tt.from}

			err := k.TransitionProcessState(pcb, tt.to)
			if tt.legal && err != nil {
				t.Errorf("Expected legal transition, got %v", err)
			}
			if !tt.legal && !models.IsFatal(err) {
				t.Errorf("Expected fatal error, got %v", err)
			}
			if tt.legal && pcb.EstadoActual != tt.to {
				t.Errorf("Expected state %s, got %s", tt.to, pcb.EstadoActual)
			}
		})
	}
}

func TestTransitionProcessState_RecordsBroken(t *testing.T) {
	k, _ := newTestKernel(t, 2)
	pcb := &models.PCB{PID: 1, EstadoActual: models.EstadoRunnable}

	_ = k.TransitionProcessState(pcb, models.EstadoBroken)

	if got := k.BrokenPids(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected [1], got %v", got)
	}
}
