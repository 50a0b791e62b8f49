package models

import (
	"errors"
	"fmt"
)

// Layout fijo de memoria, al estilo x86 de 32 bits con páginas de 4 KiB.
const (
	PageSize         = 4096
	PageTableEntries = 1024
	PageEntrySize    = 4

	KernelStartAddr = 0x40000
	KernelStackTop  = 0x80000
	ConsoleAddr     = 0xB8000
	IOHoleStart     = 0xA0000
	ProcStartAddr   = 0x100000
	MemSizeVirtual  = 0x300000

	// Una sola tabla de segundo nivel cubre 4 MiB.
	MaxMemorySize = PageTableEntries * PageSize

	DefaultMemorySize = 0x200000
	DefaultKernelEnd  = 0x48000
)

// ErrOutOfMemory indica que no quedan frames libres.
var ErrOutOfMemory = errors.New("memoria física agotada")

// Config agrupa los parámetros configurables de la memoria física.
type Config struct {
	MemorySize int `json:"memory_size"`
	KernelEnd  int `json:"kernel_end"`
}

// DefaultConfig devuelve la configuración usada cuando el archivo no define los valores.
func DefaultConfig() Config {
	return Config{MemorySize: DefaultMemorySize, KernelEnd: DefaultKernelEnd}
}

// Validate controla que el tamaño de memoria y el fin del kernel sean compatibles con el layout fijo.
func (c Config) Validate() error {
	if c.MemorySize%PageSize != 0 {
		return fmt.Errorf("memory_size 0x%X no está alineado a página", c.MemorySize)
	}
	if c.MemorySize < ProcStartAddr || c.MemorySize > MaxMemorySize {
		return fmt.Errorf("memory_size 0x%X fuera de rango [0x%X, 0x%X]", c.MemorySize, ProcStartAddr, MaxMemorySize)
	}
	if c.KernelEnd%PageSize != 0 || c.KernelEnd <= KernelStartAddr || c.KernelEnd > IOHoleStart {
		return fmt.Errorf("kernel_end 0x%X inválido", c.KernelEnd)
	}
	if c.KernelEnd > KernelStackTop-PageSize {
		return fmt.Errorf("kernel_end 0x%X pisa la pila del kernel", c.KernelEnd)
	}
	return nil
}

// NumPages devuelve la cantidad de frames físicos.
func (c Config) NumPages() int {
	return c.MemorySize / PageSize
}

// PageNumber convierte una dirección en su número de página.
func PageNumber(addr uint32) int {
	return int(addr / PageSize)
}

// PageAddress convierte un número de página en su dirección.
func PageAddress(pn int) uint32 {
	return uint32(pn) * PageSize
}
