package models

import "fmt"

// Registers es el contexto de ejecución guardado de un proceso. Se copia por valor, nunca se comparte.
type Registers struct {
	EAX uint32
	EBX uint32
	ECX uint32
	EDX uint32
	ESI uint32
	EDI uint32
	EBP uint32
	ESP uint32
	EIP uint32

	// Err son los flags de error del trap y FaultAddr la dirección que produjo un page fault.
	Err       uint32
	FaultAddr uint32
}

// Return interpreta EAX como valor de retorno con signo.
func (r *Registers) Return() int32 {
	return int32(r.EAX)
}

// SetReturn escribe el valor de retorno de una syscall en EAX.
func (r *Registers) SetReturn(value int32) {
	r.EAX = uint32(value)
}

// Flags de error de un page fault.
const (
	PFErrPresent uint32 = 1 << 0
	PFErrWrite   uint32 = 1 << 1
	PFErrUser    uint32 = 1 << 2
)

type TrapCause int

// Números de interrupción de las syscalls, a partir de 48.
const (
	TrapPanic TrapCause = iota + 48
	TrapGetPid
	TrapYield
	TrapPageAlloc
	TrapFork
	TrapExit
)

// Excepciones del procesador e interrupción de timer.
const (
	TrapInvalidOpcode TrapCause = 6
	TrapPageFault     TrapCause = 14
	TrapTimer         TrapCause = 32
)

func (c TrapCause) String() string {
	switch c {
	case TrapGetPid:
		return "GETPID"
	case TrapYield:
		return "YIELD"
	case TrapPageAlloc:
		return "PAGE_ALLOC"
	case TrapFork:
		return "FORK"
	case TrapExit:
		return "EXIT"
	case TrapPanic:
		return "PANIC"
	case TrapInvalidOpcode:
		return "INVALID_OPCODE"
	case TrapPageFault:
		return "PAGE_FAULT"
	case TrapTimer:
		return "TIMER"
	default:
		return fmt.Sprintf("TRAP_%d", int(c))
	}
}

type OutcomeKind int

const (
	// OutcomeResume: continuar con el proceso indicado.
	OutcomeResume OutcomeKind = iota
	// OutcomeIdle: no hay proceso para continuar y la plataforma pidió detenerse.
	OutcomeIdle
)

// Outcome es el resultado de una decisión del planificador.
type Outcome struct {
	Kind OutcomeKind
	PCB  *PCB
}

// Resume construye el resultado que continúa con pcb.
func Resume(pcb *PCB) Outcome {
	return Outcome{Kind: OutcomeResume, PCB: pcb}
}

// Idle es el resultado sin proceso para continuar.
func Idle() Outcome {
	return Outcome{Kind: OutcomeIdle}
}
