package models

// AddressSpaceSnapshot es la foto del espacio de direcciones de un proceso.
type AddressSpaceSnapshot struct {
	Pid   int              `json:"pid"`
	State string           `json:"state"`
	Pages []VirtualMapping `json:"pages"`
}

// MemorySnapshot es la foto que reciben los visualizadores. Es una copia, nunca comparte estado con el kernel.
type MemorySnapshot struct {
	Ticks     uint                   `json:"ticks"`
	Current   int                    `json:"current"`
	Physical  []PhysicalPage         `json:"physical"`
	Processes []AddressSpaceSnapshot `json:"processes"`
}

// Process devuelve la foto del proceso indicado, si está vivo.
func (s *MemorySnapshot) Process(pid int) (AddressSpaceSnapshot, bool) {
	for _, p := range s.Processes {
		if p.Pid == pid {
			return p, true
		}
	}
	return AddressSpaceSnapshot{}, false
}
