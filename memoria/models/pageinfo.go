package models

import "strconv"

// Owner identifica al dueño de un frame físico. Los valores positivos son PIDs.
type Owner int

const (
	OwnerFree     Owner = 0
	OwnerReserved Owner = -1
	OwnerKernel   Owner = -2
)

// IsProcess indica si el dueño es un proceso.
func (o Owner) IsProcess() bool {
	return o > 0
}

func (o Owner) String() string {
	switch o {
	case OwnerFree:
		return "FREE"
	case OwnerReserved:
		return "RESERVED"
	case OwnerKernel:
		return "KERNEL"
	default:
		return "PID " + strconv.Itoa(int(o))
	}
}

// PhysicalPage es la entrada del ledger para un frame físico.
type PhysicalPage struct {
	Owner    Owner `json:"owner"`
	Refcount int   `json:"refcount"`
}

// IsFree indica si el frame puede entregarse.
func (p PhysicalPage) IsFree() bool {
	return p.Owner == OwnerFree && p.Refcount == 0
}
