package models

import (
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

type Estado string

const (
	EstadoFree     Estado = "FREE"
	EstadoRunnable Estado = "RUNNABLE"
	EstadoBlocked  Estado = "BLOCKED"
	EstadoBroken   Estado = "BROKEN"
)

// PCB es el descriptor de un proceso. El PID coincide con el índice del slot.
type PCB struct {
	PID          int
	EstadoActual Estado
	Registers    Registers
	PageTable    memModels.PageTable
	HasTable     bool
	Program      int
}

// IsLive indica si el descriptor tiene recursos asociados.
func (p *PCB) IsLive() bool {
	return p.EstadoActual != EstadoFree
}
