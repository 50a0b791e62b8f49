package services

import (
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

var ErrOutOfMemory = models.ErrOutOfMemory

// MemoryManager agrupa la memoria física, el ledger y la tabla de páginas canónica del kernel.
type MemoryManager struct {
	Memory      *PhysicalMemory
	Ledger      *Ledger
	KernelTable models.PageTable
}

// NewMemoryManager inicializa la memoria física y el ledger, y arma la tabla del kernel:
// identidad en [0, ProcStartAddr) sin acceso de usuario, salvo la página de consola.
func NewMemoryManager(cfg models.Config) (*MemoryManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mm := &MemoryManager{
		Memory: NewPhysicalMemory(cfg.MemorySize),
		Ledger: NewLedger(cfg),
	}

	l1, ok := mm.Ledger.AcquireFree(models.OwnerKernel)
	if !ok {
		return nil, fmt.Errorf("tabla del kernel: %w", ErrOutOfMemory)
	}
	l2, ok := mm.Ledger.AcquireFree(models.OwnerKernel)
	if !ok {
		return nil, fmt.Errorf("tabla del kernel: %w", ErrOutOfMemory)
	}
	mm.KernelTable = mm.Memory.InitPageTable(l1, l2)

	if err := mm.Memory.Map(mm.KernelTable, 0, 0, models.ProcStartAddr, models.PermPresent|models.PermWritable); err != nil {
		return nil, err
	}
	if err := mm.Memory.Map(mm.KernelTable, models.ConsoleAddr, models.ConsoleAddr, models.PageSize, models.PermAll); err != nil {
		return nil, err
	}

	slog.Debug("Memoria inicializada", "tamaño", cfg.MemorySize, "frames", mm.Ledger.Len(),
		"tabla_kernel", l1, "libres", mm.Ledger.FreeCount())
	return mm, nil
}

// DuplicateFor arma un espacio de direcciones nuevo para owner: dos frames (primer y segundo nivel) en cero,
// la entrada 0 del primer nivel apuntando al segundo, y las entradas del kernel bajo ProcStartAddr copiadas tal cual.
// Los frames del kernel quedan compartidos sin tocar su refcount.
//
// Si falla alguna asignación devuelve ErrOutOfMemory sin deshacer nada: el llamador recupera los frames de owner.
func (mm *MemoryManager) DuplicateFor(owner models.Owner) (models.PageTable, error) {
	l1, ok := mm.Ledger.AcquireFree(owner)
	if !ok {
		return models.PageTable{}, fmt.Errorf("tabla de primer nivel para %s: %w", owner, ErrOutOfMemory)
	}
	l2, ok := mm.Ledger.AcquireFree(owner)
	if !ok {
		return models.PageTable{}, fmt.Errorf("tabla de segundo nivel para %s: %w", owner, ErrOutOfMemory)
	}

	table := mm.Memory.InitPageTable(l1, l2)
	if err := mm.Memory.CopyEntries(table, mm.KernelTable, models.PageNumber(models.ProcStartAddr)); err != nil {
		return models.PageTable{}, err
	}
	return table, nil
}

// TableFrames devuelve los frames que ocupa la estructura de una tabla de páginas.
func (mm *MemoryManager) TableFrames(table models.PageTable) []int {
	frames := []int{table.Frame}
	if l2, ok := mm.Memory.SecondLevel(table); ok {
		frames = append(frames, l2)
	}
	return frames
}
