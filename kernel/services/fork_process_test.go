package services

import (
	"errors"
	"testing"

	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// dropWritablePages deja al proceso solo con sus páginas de solo lectura.
func dropWritablePages(t *testing.T, k *Kernel, pcb *models.PCB) {
	t.Helper()
	mem := k.Memory().Memory
	for va := uint32(memModels.ProcStartAddr); va < memModels.MemSizeVirtual; va += memModels.PageSize {
		vam := mem.Lookup(pcb.PageTable, va)
		if !vam.Mapped() || !vam.Perm.Writable() {
			continue
		}
		_ = mem.Unmap(pcb.PageTable, va)
		if _, err := k.Memory().Ledger.Release(vam.Frame); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
}

func TestForkProcess_ReadOnlyShared(t *testing.T) {
	k, _ := newTestKernel(t, 4)
	ledger := k.Memory().Ledger
	parent := mustCreate(t, k, 1, progCodeOnly)
	dropWritablePages(t, k, parent)
	assertInvariants(t, k)

	before := ledgerState(k)
	free := ledger.FreeCount()

	child, err := k.ForkProcess(parent)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Solo se toman los dos frames de la tabla del hijo.
	if used := free - ledger.FreeCount(); used != 2 {
		t.Errorf("Expected 2 new frames, got %d", used)
	}
	childPCB := k.Process(child)
	mem := k.Memory().Memory
	shared := 0
	for va := uint32(memModels.ProcStartAddr); va < memModels.MemSizeVirtual; va += memModels.PageSize {
		p := mem.Lookup(parent.PageTable, va)
		c := mem.Lookup(childPCB.PageTable, va)
		if p != c {
			t.Fatalf("Expected identical mapping at 0x%X, got %+v and %+v", va, p, c)
		}
		if !p.Mapped() {
			continue
		}
		shared++
		if got, want := ledger.Page(p.Frame).Refcount, before[p.Frame].Refcount+1; got != want {
			t.Errorf("Expected refcount %d on frame %d, got %d", want, p.Frame, got)
		}
		if ledger.Page(p.Frame).Owner != 1 {
			t.Errorf("Expected shared frame still owned by PID 1, got %s", ledger.Page(p.Frame).Owner)
		}
	}
	if shared != 2 {
		t.Errorf("Expected 2 shared pages, got %d", shared)
	}
	assertInvariants(t, k)
}

func TestForkProcess_WritableCopied(t *testing.T) {
	k, _ := newTestKernel(t, 4)
	mem := k.Memory().Memory
	parent := mustCreate(t, k, 1, progCodeAndData)
	parent.Registers.EBX = 0xCAFE

	dataVA := uint32(memModels.ProcStartAddr + memModels.PageSize)
	parentData := mem.Lookup(parent.PageTable, dataVA)
	copy(mem.Frame(parentData.Frame), []byte("hola"))

	child, err := k.ForkProcess(parent)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	childPCB := k.Process(child)
	childData := mem.Lookup(childPCB.PageTable, dataVA)

	if childData.Frame == parentData.Frame {
		t.Fatalf("Expected a distinct frame for the writable page")
	}
	if childData.Perm != parentData.Perm {
		t.Errorf("Expected perm %d, got %d", parentData.Perm, childData.Perm)
	}
	if string(mem.Frame(childData.Frame)) != string(mem.Frame(parentData.Frame)) {
		t.Errorf("Expected identical bytes at fork time")
	}

	mem.Frame(parentData.Frame)[0] = 'H'
	mem.Frame(childData.Frame)[1] = 'O'
	if got := string(mem.Frame(childData.Frame)[:4]); got != "hOla" {
		t.Errorf("Expected child to see hOla, got %q", got)
	}
	if got := string(mem.Frame(parentData.Frame)[:4]); got != "Hola" {
		t.Errorf("Expected parent to see Hola, got %q", got)
	}

	if childPCB.EstadoActual != models.EstadoRunnable {
		t.Errorf("Expected child RUNNABLE, got %s", childPCB.EstadoActual)
	}
	if childPCB.Registers.EAX != 0 || childPCB.Registers.EBX != 0xCAFE || childPCB.Registers.EIP != parent.Registers.EIP {
		t.Errorf("Expected copied registers with EAX 0, got %+v", childPCB.Registers)
	}
	assertInvariants(t, k)
}

func TestForkProcess_NoSlot(t *testing.T) {
	k, _ := newTestKernel(t, 2)
	parent := mustCreate(t, k, 1, progCodeAndData)
	before := ledgerState(k)

	_, err := k.ForkProcess(parent)
	if !errors.Is(err, models.ErrNoSlot) {
		t.Errorf("Expected ErrNoSlot, got %v", err)
	}
	for frame, page := range ledgerState(k) {
		if page != before[frame] {
			t.Fatalf("Expected frame %d unchanged", frame)
		}
	}
}

func TestForkProcess_OutOfMemoryRollsBack(t *testing.T) {
	// 0 y 1: falla la tabla, 2: falla la primera copia, 3: falla la segunda.
	for _, left := range []int{0, 1, 2, 3} {
		k, _ := newTestKernel(t, 4)
		ledger := k.Memory().Ledger
		parent := mustCreate(t, k, 1, progCodeAndData)
		for va := uint32(memModels.ProcStartAddr + 2*memModels.PageSize); ledger.FreeCount() > left; va += memModels.PageSize {
			if err := k.PageAlloc(parent, va); err != nil {
				t.Fatalf("Expected PAGE_ALLOC to succeed, got %v", err)
			}
		}
		refs, free := ledger.TotalRefcount(), ledger.FreeCount()

		child, err := k.ForkProcess(parent)

		if !errors.Is(err, models.ErrOutOfMemory) || child != -1 {
			t.Errorf("Expected ErrOutOfMemory with %d free frames, got %d (%v)", left, child, err)
		}
		if ledger.TotalRefcount() != refs || ledger.FreeCount() != free {
			t.Errorf("Expected refcounts %d and %d free, got %d and %d", refs, free, ledger.TotalRefcount(), ledger.FreeCount())
		}
		if k.Process(2).EstadoActual != models.EstadoFree || k.Process(2).HasTable {
			t.Errorf("Expected child slot FREE, got %+v", k.Process(2))
		}
		if parent.EstadoActual != models.EstadoRunnable {
			t.Errorf("Expected parent RUNNABLE, got %s", parent.EstadoActual)
		}
		assertInvariants(t, k)
	}
}
