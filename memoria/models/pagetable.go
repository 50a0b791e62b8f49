package models

// Permission son los bits de permiso de una entrada de tabla de páginas.
type Permission uint32

const (
	PermPresent  Permission = 1 << 0
	PermWritable Permission = 1 << 1
	PermUser     Permission = 1 << 2

	PermAll = PermPresent | PermWritable | PermUser
)

func (p Permission) Present() bool  { return p&PermPresent != 0 }
func (p Permission) Writable() bool { return p&PermWritable != 0 }
func (p Permission) User() bool     { return p&PermUser != 0 }

// PageTable es el handle opaco de un espacio de direcciones: el frame de su tabla de primer nivel.
type PageTable struct {
	Frame int `json:"frame"`
}

// VirtualMapping es el resultado de buscar una dirección virtual. Frame vale -1 si no está mapeada.
type VirtualMapping struct {
	Frame int        `json:"frame"`
	PA    uint32     `json:"pa"`
	Perm  Permission `json:"perm"`
}

// Unmapped es el mapping de una dirección sin traducción.
var Unmapped = VirtualMapping{Frame: -1}

// Mapped indica si la dirección tiene traducción presente.
func (m VirtualMapping) Mapped() bool {
	return m.Frame >= 0 && m.Perm.Present()
}
