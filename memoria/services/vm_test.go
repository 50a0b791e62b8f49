package services

import (
	"testing"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

func newTestManager(t *testing.T) *MemoryManager {
	t.Helper()
	mm, err := NewMemoryManager(models.DefaultConfig())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return mm
}

func TestMap_Lookup(t *testing.T) {
	mm := newTestManager(t)
	table := mm.KernelTable

	va := uint32(models.ProcStartAddr + 3*models.PageSize)
	pa := uint32(0x150000)
	if err := mm.Memory.Map(table, va, pa, 2*models.PageSize, models.PermAll); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tests := []struct {
		name string
		va   uint32
		want models.VirtualMapping
	}{
		{"primera página", va, models.VirtualMapping{Frame: models.PageNumber(pa), PA: pa, Perm: models.PermAll}},
		{"segunda página", va + models.PageSize, models.VirtualMapping{Frame: models.PageNumber(pa) + 1, PA: pa + models.PageSize, Perm: models.PermAll}},
		{"sin mapear", va + 2*models.PageSize, models.Unmapped},
		{"fuera del espacio", 1 << 22, models.Unmapped},
		{"consola", models.ConsoleAddr, models.VirtualMapping{Frame: models.PageNumber(models.ConsoleAddr), PA: models.ConsoleAddr, Perm: models.PermAll}},
		{"kernel", models.KernelStartAddr, models.VirtualMapping{Frame: models.PageNumber(models.KernelStartAddr), PA: models.KernelStartAddr, Perm: models.PermPresent | models.PermWritable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mm.Memory.Lookup(table, tt.va)
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestMap_Idempotent(t *testing.T) {
	mm := newTestManager(t)
	table := mm.KernelTable
	l2, _ := mm.Memory.SecondLevel(table)

	va := uint32(models.ProcStartAddr)
	_ = mm.Memory.Map(table, va, 0x120000, models.PageSize, models.PermPresent|models.PermUser)
	before := append([]byte(nil), mm.Memory.Frame(l2)...)

	if err := mm.Memory.Map(table, va, 0x120000, models.PageSize, models.PermPresent|models.PermUser); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(before) != string(mm.Memory.Frame(l2)) {
		t.Errorf("Expected second-level table unchanged after remapping")
	}
}

func TestMap_EntryEncoding(t *testing.T) {
	mm := newTestManager(t)
	table := mm.KernelTable
	l2, _ := mm.Memory.SecondLevel(table)

	_ = mm.Memory.Map(table, models.ProcStartAddr, 0x123000, models.PageSize, models.PermPresent|models.PermWritable)

	offset := models.PageNumber(models.ProcStartAddr) * models.PageEntrySize
	raw := mm.Memory.Frame(l2)[offset : offset+models.PageEntrySize]
	want := []byte{0x03, 0x30, 0x12, 0x00}
	if string(raw) != string(want) {
		t.Errorf("Expected entry % X, got % X", want, raw)
	}
}

func TestMap_ThrowError(t *testing.T) {
	mm := newTestManager(t)
	table := mm.KernelTable

	tests := []struct {
		name   string
		va, pa uint32
		length int
		perm   models.Permission
	}{
		{"va desalineada", models.ProcStartAddr + 1, 0, models.PageSize, models.PermAll},
		{"pa desalineada", models.ProcStartAddr, 7, models.PageSize, models.PermAll},
		{"largo inválido", models.ProcStartAddr, 0, 100, models.PermAll},
		{"largo cero", models.ProcStartAddr, 0, 0, models.PermAll},
		{"fuera del segundo nivel", models.MaxMemorySize - models.PageSize, 0, 2 * models.PageSize, models.PermAll},
		{"permisos inválidos", models.ProcStartAddr, 0, models.PageSize, 0x1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := mm.Memory.Map(table, tt.va, tt.pa, tt.length, tt.perm); err == nil {
				t.Errorf("Expected error, got nil")
			}
		})
	}

	if err := mm.Memory.Map(models.PageTable{Frame: 5}, models.ProcStartAddr, 0, models.PageSize, models.PermAll); err == nil {
		t.Errorf("Expected error for a table without second level, got nil")
	}
}

func TestUnmap(t *testing.T) {
	mm := newTestManager(t)
	table := mm.KernelTable
	_ = mm.Memory.Map(table, models.ProcStartAddr, 0x120000, models.PageSize, models.PermAll)

	if err := mm.Memory.Unmap(table, models.ProcStartAddr); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := mm.Memory.Lookup(table, models.ProcStartAddr); got.Mapped() {
		t.Errorf("Expected unmapped, got %+v", got)
	}
}
