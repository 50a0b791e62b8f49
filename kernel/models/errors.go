package models

import (
	"errors"
	"fmt"

	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// Errores recuperables: se informan al proceso que pidió la operación.
var (
	ErrOutOfMemory = memModels.ErrOutOfMemory
	ErrNoSlot      = errors.New("no hay slots de proceso libres")
	ErrInvalidPid  = errors.New("pid inválido")
	ErrSlotInUse   = errors.New("slot de proceso en uso")
	ErrLoadFailed  = errors.New("falló la carga del programa")
	ErrInvalidAddr = errors.New("dirección virtual inválida")
)

// Errores fatales: detienen todo el sistema.
var (
	ErrKernelFault        = errors.New("page fault en modo kernel")
	ErrInvariantViolation = errors.New("invariante de memoria violado")
	ErrUnknownTrap        = errors.New("trap inesperado")
	ErrUserPanic          = errors.New("panic solicitado por un proceso")
	ErrIllegalTransition  = errors.New("transición de estado ilegal")
	ErrHalted             = errors.New("kernel detenido")
)

// FatalError describe una falla irrecuperable del kernel.
type FatalError struct {
	Module  string
	Pid     int
	Err     error
	Message string
}

func (e *FatalError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("[%s] pid %d: %v", e.Module, e.Pid, e.Err)
	}
	return fmt.Sprintf("[%s] pid %d: %v: %s", e.Module, e.Pid, e.Err, e.Message)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal construye un FatalError con mensaje formateado.
func Fatal(module string, pid int, err error, format string, args ...interface{}) *FatalError {
	return &FatalError{Module: module, Pid: pid, Err: err, Message: fmt.Sprintf(format, args...)}
}

// IsFatal indica si err detiene el sistema.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
