package services

import (
	"errors"
	"testing"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

func assertLedgerConsistent(t *testing.T, l *Ledger) {
	t.Helper()
	for pn, page := range l.Snapshot() {
		if (page.Refcount == 0) != (page.Owner == models.OwnerFree) {
			t.Fatalf("Expected refcount 0 <=> FREE on frame %d, got owner %s refcount %d", pn, page.Owner, page.Refcount)
		}
	}
}

func TestNewLedger_InitialLayout(t *testing.T) {
	l := NewLedger(models.DefaultConfig())

	tests := []struct {
		name  string
		addr  uint32
		owner models.Owner
	}{
		{"frame cero", 0, models.OwnerReserved},
		{"primer libre", 0x1000, models.OwnerFree},
		{"inicio del kernel", models.KernelStartAddr, models.OwnerKernel},
		{"última página del kernel", models.DefaultKernelEnd - models.PageSize, models.OwnerKernel},
		{"después del kernel", models.DefaultKernelEnd, models.OwnerFree},
		{"pila del kernel", models.KernelStackTop - models.PageSize, models.OwnerKernel},
		{"consola", models.ConsoleAddr, models.OwnerReserved},
		{"fin del agujero de E/S", models.ProcStartAddr - models.PageSize, models.OwnerReserved},
		{"región de procesos", models.ProcStartAddr, models.OwnerFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := l.Page(models.PageNumber(tt.addr))
			if page.Owner != tt.owner {
				t.Errorf("Expected owner %s, got %s", tt.owner, page.Owner)
			}
		})
	}

	if l.Len() != 512 {
		t.Errorf("Expected 512 frames, got %d", l.Len())
	}
	if l.FreeCount() != 406 {
		t.Errorf("Expected 406 free frames, got %d", l.FreeCount())
	}
	assertLedgerConsistent(t, l)
}

func TestLedger_FindFreeFrame_LowestFirst(t *testing.T) {
	l := NewLedger(models.DefaultConfig())

	frame, ok := l.FindFreeFrame()
	if !ok || frame != 1 {
		t.Errorf("Expected frame 1, got %d (%v)", frame, ok)
	}
}

func TestLedger_Allocate(t *testing.T) {
	l := NewLedger(models.DefaultConfig())

	if err := l.Allocate(models.ProcStartAddr, 3); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	page := l.Page(models.PageNumber(models.ProcStartAddr))
	if page.Owner != 3 || page.Refcount != 1 {
		t.Errorf("Expected PID 3 with refcount 1, got %s with %d", page.Owner, page.Refcount)
	}

	tests := []struct {
		name string
		addr uint32
		want error
	}{
		{"ya asignado", models.ProcStartAddr, ErrAlreadyAllocated},
		{"kernel", models.KernelStartAddr, ErrAlreadyAllocated},
		{"desalineada", models.ProcStartAddr + 1, ErrInvalidAddress},
		{"fuera de rango", models.DefaultMemorySize, ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := l.Snapshot()
			err := l.Allocate(tt.addr, 4)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			after := l.Snapshot()
			for pn := range before {
				if before[pn] != after[pn] {
					t.Fatalf("Expected frame %d unchanged, got %v -> %v", pn, before[pn], after[pn])
				}
			}
		})
	}
	assertLedgerConsistent(t, l)
}

func TestLedger_AcquireFree_UntilExhaustion(t *testing.T) {
	l := NewLedger(models.DefaultConfig())
	free := l.FreeCount()

	for i := 0; i < free; i++ {
		if _, ok := l.AcquireFree(1); !ok {
			t.Fatalf("Expected frame %d of %d, got exhaustion", i, free)
		}
	}
	if _, ok := l.AcquireFree(1); ok {
		t.Errorf("Expected exhaustion, got a frame")
	}
	if l.FreeCount() != 0 {
		t.Errorf("Expected 0 free frames, got %d", l.FreeCount())
	}
	if len(l.OwnedBy(1).GetAll()) != free {
		t.Errorf("Expected %d frames owned by PID 1, got %d", free, len(l.OwnedBy(1).GetAll()))
	}
	assertLedgerConsistent(t, l)
}

func TestLedger_RetainRelease(t *testing.T) {
	l := NewLedger(models.DefaultConfig())
	frame, _ := l.AcquireFree(2)

	if err := l.Retain(frame); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if l.Page(frame).Refcount != 2 {
		t.Errorf("Expected refcount 2, got %d", l.Page(frame).Refcount)
	}

	freed, err := l.Release(frame)
	if err != nil || freed {
		t.Errorf("Expected frame still in use, got freed=%v err=%v", freed, err)
	}
	freed, err = l.Release(frame)
	if err != nil || !freed {
		t.Errorf("Expected frame freed, got freed=%v err=%v", freed, err)
	}
	if !l.Page(frame).IsFree() {
		t.Errorf("Expected frame %d FREE, got %v", frame, l.Page(frame))
	}

	if _, err := l.Release(frame); !errors.Is(err, ErrFrameNotInUse) {
		t.Errorf("Expected ErrFrameNotInUse, got %v", err)
	}
	if err := l.Retain(frame); !errors.Is(err, ErrFrameNotInUse) {
		t.Errorf("Expected ErrFrameNotInUse, got %v", err)
	}
	assertLedgerConsistent(t, l)
}

func TestLedger_SetOwner(t *testing.T) {
	l := NewLedger(models.DefaultConfig())
	frame, _ := l.AcquireFree(2)

	if err := l.SetOwner(frame, 5); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if l.Page(frame).Owner != 5 {
		t.Errorf("Expected PID 5, got %s", l.Page(frame).Owner)
	}
	if err := l.SetOwner(frame, models.OwnerKernel); err == nil {
		t.Errorf("Expected error reassigning to KERNEL, got nil")
	}

	free := frame + 1
	if !l.Page(free).IsFree() {
		t.Fatalf("Expected frame %d FREE, got %v", free, l.Page(free))
	}
	if err := l.SetOwner(free, 5); !errors.Is(err, ErrFrameNotInUse) {
		t.Errorf("Expected ErrFrameNotInUse, got %v", err)
	}
	if !l.Page(free).IsFree() {
		t.Errorf("Expected frame %d still FREE, got %v", free, l.Page(free))
	}
}

func TestLedger_ForceFree(t *testing.T) {
	l := NewLedger(models.DefaultConfig())
	frame, _ := l.AcquireFree(2)
	_ = l.Retain(frame)

	l.ForceFree(frame)
	l.ForceFree(-1)
	l.ForceFree(l.Len())

	if !l.Page(frame).IsFree() {
		t.Errorf("Expected frame FREE, got %v", l.Page(frame))
	}
	assertLedgerConsistent(t, l)
}

func TestLedger_TotalRefcount(t *testing.T) {
	l := NewLedger(models.DefaultConfig())
	before := l.TotalRefcount()

	frame, _ := l.AcquireFree(1)
	_ = l.Retain(frame)

	if l.TotalRefcount() != before+2 {
		t.Errorf("Expected %d, got %d", before+2, l.TotalRefcount())
	}
}
