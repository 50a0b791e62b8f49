package models

import (
	"fmt"

	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// Opcode es una instrucción de la CPU simulada. El código de cada programa es una tabla indexada por opcode:
// el byte en LinkAddr+op vale op, y EIP apunta siempre al opcode que se va a ejecutar.
type Opcode byte

const (
	OpInvalid Opcode = 0x00

	// Asignador: pide páginas de heap hasta chocar con la pila o quedarse sin memoria.
	OpAllocStart Opcode = 0x01 // GETPID
	OpAllocSetup Opcode = 0x02 // srand(pid), heap y pila
	OpAllocLoop  Opcode = 0x03
	OpAllocStore Opcode = 0x04 // resultado de PAGE_ALLOC
	OpAllocYield Opcode = 0x05
	OpAllocIdle  Opcode = 0x06 // YIELD para siempre

	// Fork: dos FORK, verifica los valores devueltos y sigue como asignador.
	OpForkFirst  Opcode = 0x10
	OpForkSecond Opcode = 0x11
	OpForkGetPid Opcode = 0x12
	OpForkVerify Opcode = 0x13

	// Forkexit: crea hijos al azar; los hijos asignan, hacen fork y terminan al azar.
	OpSpawnStart  Opcode = 0x20 // rand sin semilla
	OpSpawnLoop   Opcode = 0x21
	OpSpawnCheck  Opcode = 0x22
	OpExitStart   Opcode = 0x23 // GETPID
	OpExitSetup   Opcode = 0x24
	OpExitLoop    Opcode = 0x25
	OpExitStore   Opcode = 0x26
	OpExitForked  Opcode = 0x27
	OpExitRenamed Opcode = 0x28
	OpExitIdle    Opcode = 0x29

	// Wild: escribe en la consola y después en memoria del kernel.
	OpWildStart   Opcode = 0x30 // GETPID
	OpWildConsole Opcode = 0x31
	OpWildKernel  Opcode = 0x32

	codeSize = 0x40
)

// Constantes de los programas de prueba.
const (
	AllocSlowdown = 100
	DefaultSeed   = 819234718

	ProgramFork     = 4
	ProgramForkExit = 5
	ProgramWild     = 6

	programSpacing = 0x40000
)

var (
	allocOps    = []Opcode{OpAllocStart, OpAllocSetup, OpAllocLoop, OpAllocStore, OpAllocYield, OpAllocIdle}
	forkOps     = []Opcode{OpForkFirst, OpForkSecond, OpForkGetPid, OpForkVerify}
	forkExitOps = []Opcode{OpSpawnStart, OpSpawnLoop, OpSpawnCheck, OpExitStart, OpExitSetup, OpExitLoop, OpExitStore, OpExitForked, OpExitRenamed, OpExitIdle}
	wildOps     = []Opcode{OpWildStart, OpWildConsole, OpWildKernel}
)

// assemble arma la tabla de código con los opcodes indicados. El resto queda en OpInvalid.
func assemble(groups ...[]Opcode) []byte {
	code := make([]byte, codeSize)
	for _, ops := range groups {
		for _, op := range ops {
			code[op] = byte(op)
		}
	}
	return code
}

func image(name string, link uint32, entry Opcode, groups ...[]Opcode) memModels.ProgramImage {
	return memModels.ProgramImage{
		Name:      name,
		LinkAddr:  link,
		Entry:     link + uint32(entry),
		Code:      assemble(groups...),
		DataPages: 1,
	}
}

// Catalog devuelve las imágenes de los programas, indexadas por número de programa.
// Los asignadores 0 a 3 se enlazan separados para que cada uno ocupe sus frames de identidad.
func Catalog() map[int]memModels.ProgramImage {
	catalog := make(map[int]memModels.ProgramImage)
	for i := 0; i < 4; i++ {
		link := uint32(memModels.ProcStartAddr + i*programSpacing)
		catalog[i] = image(fmt.Sprintf("allocator%d", i), link, OpAllocStart, allocOps)
	}
	catalog[ProgramFork] = image("fork", memModels.ProcStartAddr, OpForkFirst, forkOps, allocOps)
	catalog[ProgramForkExit] = image("forkexit", memModels.ProcStartAddr, OpSpawnStart, forkExitOps)
	catalog[ProgramWild] = image("wild", memModels.ProcStartAddr, OpWildStart, wildOps)
	return catalog
}
