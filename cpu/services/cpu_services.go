package services

import (
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-weensy-magiOS/cpu/models"
	kernelModels "github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
	memServices "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/services"
)

// Kernel es lo que la CPU necesita del núcleo: la entrada de traps y la tabla de páginas activa.
type Kernel interface {
	HandleTrap(cause kernelModels.TrapCause, regs kernelModels.Registers) (kernelModels.Outcome, error)
	ActiveTable() memModels.PageTable
}

// Machine es la CPU simulada. Ejecuta al proceso que le indica el kernel hasta que se produce un trap.
type Machine struct {
	kernel  Kernel
	mmu     *MMU
	tlb     *TLB
	images  map[int]memModels.ProgramImage
	quantum int

	sinceTimer   int
	instructions uint64
}

func NewMachine(kernel Kernel, memory *memServices.PhysicalMemory, images map[int]memModels.ProgramImage, cfg models.Config) *Machine {
	tlb := NewTLB(cfg.TlbEntries, cfg.TlbReplacement)
	return &Machine{
		kernel:  kernel,
		mmu:     NewMMU(memory, tlb),
		tlb:     tlb,
		images:  images,
		quantum: max(cfg.Quantum, 1),
	}
}

// Run ejecuta procesos a partir de first hasta que el kernel devuelve Idle (nil) o un error fatal.
func (m *Machine) Run(first kernelModels.Outcome) error {
	outcome := first
	for outcome.Kind == kernelModels.OutcomeResume {
		pcb := outcome.PCB
		regs := pcb.Registers
		cause := m.execute(pcb.PID, pcb.Program, &regs)

		var err error
		outcome, err = m.kernel.HandleTrap(cause, regs)
		if err != nil {
			m.logStats()
			return err
		}
	}
	m.logStats()
	return nil
}

// Instructions devuelve la cantidad de instrucciones ejecutadas.
func (m *Machine) Instructions() uint64 {
	return m.instructions
}

func (m *Machine) logStats() {
	hits, misses := m.tlb.Stats()
	slog.Info(fmt.Sprintf("CPU detenida - Instrucciones: %d - TLB hits: %d - TLB misses: %d", m.instructions, hits, misses))
}

// execute corre instrucciones sobre la copia de registros hasta el próximo trap.
func (m *Machine) execute(pid int, program int, regs *kernelModels.Registers) kernelModels.TrapCause {
	table := m.kernel.ActiveTable()
	m.tlb.Flush()

	for {
		cause, trapped := m.step(table, program, regs)
		m.instructions++
		m.sinceTimer++
		if trapped {
			if cause == kernelModels.TrapPageFault {
				slog.Debug(fmt.Sprintf("## (%d) Page fault en 0x%X - Error: %d", pid, regs.FaultAddr, regs.Err))
			}
			return cause
		}
		if m.sinceTimer >= m.quantum {
			m.sinceTimer = 0
			return kernelModels.TrapTimer
		}
	}
}

// step ejecuta una instrucción. Devuelve la causa y true si la instrucción terminó en un trap.
func (m *Machine) step(table memModels.PageTable, program int, regs *kernelModels.Registers) (kernelModels.TrapCause, bool) {
	value, fault := m.mmu.Load(table, regs.EIP, AccessExec)
	if fault != nil {
		return pageFault(regs, fault)
	}

	switch op := models.Opcode(value); op {
	case models.OpAllocStart:
		return syscall(regs, models.OpAllocSetup, kernelModels.TrapGetPid)
	case models.OpAllocSetup:
		m.setup(program, regs)
		jump(regs, models.OpAllocLoop)
	case models.OpAllocLoop:
		if int(random(regs)%models.AllocSlowdown) < int(regs.ECX) {
			return m.requestPage(regs, models.OpAllocStore, models.OpAllocIdle)
		}
		jump(regs, models.OpAllocYield)
	case models.OpAllocStore:
		return m.storeHeap(table, regs, models.OpAllocYield, models.OpAllocIdle)
	case models.OpAllocYield:
		return syscall(regs, models.OpAllocLoop, kernelModels.TrapYield)
	case models.OpAllocIdle:
		return syscall(regs, models.OpAllocIdle, kernelModels.TrapYield)

	case models.OpForkFirst:
		return syscall(regs, models.OpForkSecond, kernelModels.TrapFork)
	case models.OpForkSecond:
		if regs.Return() < 0 {
			return syscall(regs, op, kernelModels.TrapPanic)
		}
		regs.EDX = regs.EAX
		return syscall(regs, models.OpForkGetPid, kernelModels.TrapFork)
	case models.OpForkGetPid:
		if regs.Return() < 0 {
			return syscall(regs, op, kernelModels.TrapPanic)
		}
		regs.EBP = regs.EAX
		return syscall(regs, models.OpForkVerify, kernelModels.TrapGetPid)
	case models.OpForkVerify:
		p1, p2 := regs.EDX, regs.EBP
		valid := p1 == 0 || p2 == 0
		if regs.EAX == 1 {
			valid = p1 != 0 && p2 != 0 && p1 != p2
		}
		if !valid {
			return syscall(regs, op, kernelModels.TrapPanic)
		}
		jump(regs, models.OpAllocSetup)

	case models.OpSpawnStart:
		regs.ESI = models.DefaultSeed
		jump(regs, models.OpSpawnLoop)
	case models.OpSpawnLoop:
		if random(regs)%models.AllocSlowdown == 0 {
			return syscall(regs, models.OpSpawnCheck, kernelModels.TrapFork)
		}
		return syscall(regs, models.OpSpawnLoop, kernelModels.TrapYield)
	case models.OpSpawnCheck:
		if regs.EAX == 0 {
			jump(regs, models.OpExitStart)
		} else {
			jump(regs, models.OpSpawnLoop)
		}
	case models.OpExitStart:
		return syscall(regs, models.OpExitSetup, kernelModels.TrapGetPid)
	case models.OpExitSetup:
		m.setup(program, regs)
		jump(regs, models.OpExitLoop)
	case models.OpExitLoop:
		x := random(regs) % (8 * models.AllocSlowdown)
		p := 8 * regs.ECX
		switch {
		case x < p:
			return m.requestPage(regs, models.OpExitStore, models.OpExitIdle)
		case x == p:
			return syscall(regs, models.OpExitForked, kernelModels.TrapFork)
		case x == p+1:
			return syscall(regs, models.OpExitLoop, kernelModels.TrapExit)
		default:
			return syscall(regs, models.OpExitLoop, kernelModels.TrapYield)
		}
	case models.OpExitStore:
		return m.storeHeap(table, regs, models.OpExitLoop, models.OpExitIdle)
	case models.OpExitForked:
		if regs.EAX == 0 {
			return syscall(regs, models.OpExitRenamed, kernelModels.TrapGetPid)
		}
		jump(regs, models.OpExitLoop)
	case models.OpExitRenamed:
		regs.ECX = regs.EAX
		jump(regs, models.OpExitLoop)
	case models.OpExitIdle:
		if random(regs)%(2*models.AllocSlowdown) == 0 {
			return syscall(regs, models.OpExitIdle, kernelModels.TrapExit)
		}
		return syscall(regs, models.OpExitIdle, kernelModels.TrapYield)

	case models.OpWildStart:
		return syscall(regs, models.OpWildConsole, kernelModels.TrapGetPid)
	case models.OpWildConsole:
		regs.ECX = regs.EAX
		if fault := m.mmu.Store(table, memModels.ConsoleAddr+2*regs.ECX, byte('0'+regs.ECX%10)); fault != nil {
			return pageFault(regs, fault)
		}
		jump(regs, models.OpWildKernel)
	case models.OpWildKernel:
		if fault := m.mmu.Store(table, memModels.KernelStartAddr, byte(regs.ECX)); fault != nil {
			return pageFault(regs, fault)
		}

	default:
		return kernelModels.TrapInvalidOpcode, true
	}
	return 0, false
}

// setup deja listos pid, semilla, tope del heap y base de la pila a partir del pid que quedó en EAX.
func (m *Machine) setup(program int, regs *kernelModels.Registers) {
	regs.ECX = regs.EAX
	regs.ESI = regs.ECX
	regs.EDI = m.images[program].End()
	regs.EBX = (regs.ESP - 1) &^ (memModels.PageSize - 1)
}

// requestPage pide la página en el tope del heap, salvo que el heap ya haya llegado a la pila.
func (m *Machine) requestPage(regs *kernelModels.Registers, next, full models.Opcode) (kernelModels.TrapCause, bool) {
	if regs.EDI == regs.EBX {
		jump(regs, full)
		return 0, false
	}
	regs.EAX = regs.EDI
	return syscall(regs, next, kernelModels.TrapPageAlloc)
}

// storeHeap revisa el resultado de PAGE_ALLOC y escribe el pid en la página nueva para probar el acceso.
func (m *Machine) storeHeap(table memModels.PageTable, regs *kernelModels.Registers, next, full models.Opcode) (kernelModels.TrapCause, bool) {
	if regs.Return() < 0 {
		jump(regs, full)
		return 0, false
	}
	if fault := m.mmu.Store(table, regs.EDI, byte(regs.ECX)); fault != nil {
		return pageFault(regs, fault)
	}
	regs.EDI += memModels.PageSize
	jump(regs, next)
	return 0, false
}

func jump(regs *kernelModels.Registers, op models.Opcode) {
	regs.EIP = regs.EIP&^(memModels.PageSize-1) + uint32(op)
}

func syscall(regs *kernelModels.Registers, next models.Opcode, cause kernelModels.TrapCause) (kernelModels.TrapCause, bool) {
	jump(regs, next)
	return cause, true
}

func pageFault(regs *kernelModels.Registers, fault *PageFault) (kernelModels.TrapCause, bool) {
	regs.FaultAddr = fault.Addr
	regs.Err = fault.Err
	return kernelModels.TrapPageFault, true
}

// random es el generador congruencial lineal de la biblioteca de usuario, con el estado en ESI.
func random(regs *kernelModels.Registers) uint32 {
	regs.ESI = regs.ESI*1664525 + 1013904223
	return regs.ESI & 0x7FFFFFFF
}
