package services

import (
	"fmt"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// PhysicalMemory es la memoria física simulada: un arreglo de bytes dividido en frames de PageSize.
type PhysicalMemory struct {
	data []byte
}

// NewPhysicalMemory reserva la memoria física del tamaño indicado, inicializada en cero.
func NewPhysicalMemory(size int) *PhysicalMemory {
	return &PhysicalMemory{data: make([]byte, size)}
}

// Size devuelve el tamaño en bytes.
func (m *PhysicalMemory) Size() int {
	return len(m.data)
}

// NumPages devuelve la cantidad de frames.
func (m *PhysicalMemory) NumPages() int {
	return len(m.data) / models.PageSize
}

// Frame devuelve una vista del contenido de un frame. Las escrituras sobre la vista modifican la memoria.
func (m *PhysicalMemory) Frame(frame int) []byte {
	start := frame * models.PageSize
	return m.data[start : start+models.PageSize]
}

// ZeroFrame pone en cero un frame completo.
func (m *PhysicalMemory) ZeroFrame(frame int) {
	clear(m.Frame(frame))
}

// CopyFrame copia el contenido completo de src en dst.
func (m *PhysicalMemory) CopyFrame(dst, src int) {
	copy(m.Frame(dst), m.Frame(src))
}

// LoadByte lee un byte de una dirección física.
func (m *PhysicalMemory) LoadByte(pa uint32) (byte, error) {
	if int(pa) >= len(m.data) {
		return 0, fmt.Errorf("dirección física 0x%X fuera de rango", pa)
	}
	return m.data[pa], nil
}

// StoreByte escribe un byte en una dirección física.
func (m *PhysicalMemory) StoreByte(pa uint32, value byte) error {
	if int(pa) >= len(m.data) {
		return fmt.Errorf("dirección física 0x%X fuera de rango", pa)
	}
	m.data[pa] = value
	return nil
}

func (m *PhysicalMemory) validFrame(frame int) bool {
	return frame >= 0 && frame < m.NumPages()
}
