package services

import (
	"encoding/binary"
	"fmt"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// Codificación de las entradas de tabla de páginas: dirección física en los 20 bits altos, permisos en los bajos.
// Este es el único archivo que conoce el formato.
const (
	entryAddrMask = 0xFFFFF000
	entryPermMask = 0x00000FFF
	l1Shift       = 22
)

func (m *PhysicalMemory) entry(frame, index int) uint32 {
	offset := frame*models.PageSize + index*models.PageEntrySize
	return binary.LittleEndian.Uint32(m.data[offset : offset+models.PageEntrySize])
}

func (m *PhysicalMemory) setEntry(frame, index int, value uint32) {
	offset := frame*models.PageSize + index*models.PageEntrySize
	binary.LittleEndian.PutUint32(m.data[offset:offset+models.PageEntrySize], value)
}

// InitPageTable pone en cero los dos niveles y enlaza la única entrada válida del primer nivel con el segundo.
func (m *PhysicalMemory) InitPageTable(l1, l2 int) models.PageTable {
	m.ZeroFrame(l1)
	m.ZeroFrame(l2)
	m.setEntry(l1, 0, uint32(models.PageAddress(l2))|uint32(models.PermAll))
	return models.PageTable{Frame: l1}
}

// SecondLevel devuelve el frame de la tabla de segundo nivel de table.
func (m *PhysicalMemory) SecondLevel(table models.PageTable) (int, bool) {
	if !m.validFrame(table.Frame) {
		return -1, false
	}
	pde := m.entry(table.Frame, 0)
	if pde&uint32(models.PermPresent) == 0 {
		return -1, false
	}
	l2 := models.PageNumber(pde & entryAddrMask)
	if !m.validFrame(l2) {
		return -1, false
	}
	return l2, true
}

// CopyEntries copia las primeras count entradas de segundo nivel de src en dst.
func (m *PhysicalMemory) CopyEntries(dst, src models.PageTable, count int) error {
	dstL2, ok := m.SecondLevel(dst)
	if !ok {
		return fmt.Errorf("tabla destino %d sin segundo nivel", dst.Frame)
	}
	srcL2, ok := m.SecondLevel(src)
	if !ok {
		return fmt.Errorf("tabla origen %d sin segundo nivel", src.Frame)
	}
	n := count * models.PageEntrySize
	copy(m.Frame(dstL2)[:n], m.Frame(srcL2)[:n])
	return nil
}

// Map instala en table las traducciones de [va, va+length) a [pa, pa+length) con los permisos dados.
// Volver a mapear el mismo rango con los mismos valores no cambia nada. Sin PermPresent la entrada queda vacía.
func (m *PhysicalMemory) Map(table models.PageTable, va, pa uint32, length int, perm models.Permission) error {
	if va%models.PageSize != 0 || pa%models.PageSize != 0 || length <= 0 || length%models.PageSize != 0 {
		return fmt.Errorf("map desalineado: va=0x%X pa=0x%X len=%d", va, pa, length)
	}
	if uint64(va)+uint64(length) > models.MaxMemorySize {
		return fmt.Errorf("map fuera del espacio cubierto: va=0x%X len=%d", va, length)
	}
	if uint32(perm)&^entryPermMask != 0 {
		return fmt.Errorf("permisos inválidos 0x%X", uint32(perm))
	}
	l2, ok := m.SecondLevel(table)
	if !ok {
		return fmt.Errorf("tabla %d sin segundo nivel", table.Frame)
	}

	for offset := uint32(0); offset < uint32(length); offset += models.PageSize {
		value := uint32(0)
		if perm.Present() {
			value = (pa + offset) | uint32(perm)
		}
		m.setEntry(l2, models.PageNumber(va+offset), value)
	}
	return nil
}

// Unmap borra la traducción de una página.
func (m *PhysicalMemory) Unmap(table models.PageTable, va uint32) error {
	return m.Map(table, va, 0, models.PageSize, 0)
}

// Lookup devuelve la traducción actual de va en table, o Unmapped.
func (m *PhysicalMemory) Lookup(table models.PageTable, va uint32) models.VirtualMapping {
	if va>>l1Shift != 0 {
		return models.Unmapped
	}
	l2, ok := m.SecondLevel(table)
	if !ok {
		return models.Unmapped
	}
	pte := m.entry(l2, models.PageNumber(va))
	perm := models.Permission(pte & entryPermMask)
	if !perm.Present() {
		return models.Unmapped
	}
	pa := pte & entryAddrMask
	return models.VirtualMapping{Frame: models.PageNumber(pa), PA: pa, Perm: perm}
}
