package services

import (
	"github.com/sisoputnfrba/tp-weensy-magiOS/kernel/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
	memServices "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/services"
	"github.com/sisoputnfrba/tp-weensy-magiOS/utils/list"
)

// Platform es lo que el kernel necesita del entorno que lo ejecuta.
type Platform interface {
	// PollCancellation indica, sin bloquear, si se pidió detener el sistema.
	PollCancellation() bool
}

// ProgramLoader carga el código y los datos de un programa en el espacio de direcciones de un proceso.
type ProgramLoader interface {
	LoadProgram(pid int, table memModels.PageTable, program int) (uint32, error)
}

// Visualizer recibe fotos de la memoria. Es solo de observación.
type Visualizer interface {
	Visualize(snapshot *memModels.MemorySnapshot)
}

// Kernel es el núcleo de procesos y memoria. Corre en un único hilo lógico: cada trap se atiende
// completo antes del siguiente, así que no necesita locks.
type Kernel struct {
	mm          *memServices.MemoryManager
	processes   []*models.PCB
	current     *models.PCB
	activeTable memModels.PageTable
	ticks       uint

	loader      ProgramLoader
	platform    Platform
	visualizers []Visualizer

	lastVisualized uint
	visualized     bool

	broken *list.ArrayList[int]
	halted error
}

// NewKernel crea la tabla de procesos con nproc slots (el 0 nunca se usa) sobre la memoria ya inicializada.
func NewKernel(mm *memServices.MemoryManager, nproc int, loader ProgramLoader, platform Platform) *Kernel {
	processes := make([]*models.PCB, nproc)
	for pid := range processes {
		processes[pid] = &models.PCB{PID: pid, EstadoActual: models.EstadoFree}
	}

	return &Kernel{
		mm:          mm,
		processes:   processes,
		activeTable: mm.KernelTable,
		loader:      loader,
		platform:    platform,
		broken:      list.NewArrayList[int](nproc),
	}
}

// AddVisualizer registra un visualizador más.
func (k *Kernel) AddVisualizer(v Visualizer) {
	k.visualizers = append(k.visualizers, v)
}

// Memory devuelve el administrador de memoria del kernel.
func (k *Kernel) Memory() *memServices.MemoryManager {
	return k.mm
}

// Process devuelve el descriptor del slot pid, o nil si está fuera de rango.
func (k *Kernel) Process(pid int) *models.PCB {
	if pid < 0 || pid >= len(k.processes) {
		return nil
	}
	return k.processes[pid]
}

// Nproc devuelve la cantidad de slots de la tabla de procesos.
func (k *Kernel) Nproc() int {
	return len(k.processes)
}

// Current devuelve el proceso en ejecución.
func (k *Kernel) Current() *models.PCB {
	return k.current
}

// ActiveTable devuelve la tabla de páginas activa.
func (k *Kernel) ActiveTable() memModels.PageTable {
	return k.activeTable
}

// Ticks devuelve la cantidad de interrupciones de timer atendidas.
func (k *Kernel) Ticks() uint {
	return k.ticks
}

// BrokenPids devuelve los procesos que terminaron en BROKEN, en orden.
func (k *Kernel) BrokenPids() []int {
	return k.broken.GetAll()
}

// Halted devuelve el error fatal que detuvo al kernel, si lo hubo.
func (k *Kernel) Halted() error {
	return k.halted
}
