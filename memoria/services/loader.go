package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

var ErrUnknownProgram = errors.New("programa inexistente")

// ImageLoader carga imágenes de programa en el espacio de direcciones de un proceso.
type ImageLoader struct {
	mm     *MemoryManager
	images map[int]models.ProgramImage
}

// NewImageLoader crea el cargador con el catálogo de imágenes indexado por número de programa.
func NewImageLoader(mm *MemoryManager, images map[int]models.ProgramImage) *ImageLoader {
	return &ImageLoader{mm: mm, images: images}
}

// LoadProgram copia la imagen del programa en frames con dueño pid y los mapea desde LinkAddr:
// código con Present|User, datos con Present|Writable|User. Devuelve el punto de entrada.
//
// Cada página se intenta ubicar en el frame de igual dirección física; si está ocupado se usa el primero libre.
// Ante un error los frames ya asignados quedan a nombre de pid para que el llamador los recupere.
func (l *ImageLoader) LoadProgram(pid int, table models.PageTable, program int) (uint32, error) {
	image, exists := l.images[program]
	if !exists {
		return 0, fmt.Errorf("%w: %d", ErrUnknownProgram, program)
	}
	if image.LinkAddr%models.PageSize != 0 || image.LinkAddr < models.ProcStartAddr ||
		image.End() > models.MemSizeVirtual-models.PageSize {
		return 0, fmt.Errorf("imagen %s fuera de la región de proceso", image.Name)
	}

	owner := models.Owner(pid)
	codePages := image.CodePages()
	for page := 0; page < codePages+image.DataPages; page++ {
		va := image.LinkAddr + uint32(page)*models.PageSize

		frame, err := l.placeFrame(va, owner)
		if err != nil {
			return 0, fmt.Errorf("cargando %s en 0x%X: %w", image.Name, va, err)
		}

		l.mm.Memory.ZeroFrame(frame)
		perm := models.PermPresent | models.PermWritable | models.PermUser
		if page < codePages {
			start := page * models.PageSize
			end := min(start+models.PageSize, len(image.Code))
			copy(l.mm.Memory.Frame(frame), image.Code[start:end])
			perm = models.PermPresent | models.PermUser
		}

		if err := l.mm.Memory.Map(table, va, models.PageAddress(frame), models.PageSize, perm); err != nil {
			if _, releaseErr := l.mm.Ledger.Release(frame); releaseErr != nil {
				slog.Error("No se pudo liberar el frame de la imagen", "frame", frame, "error", releaseErr)
			}
			return 0, err
		}
	}

	slog.Debug(fmt.Sprintf("## (%d) Programa %s cargado en 0x%X", pid, image.Name, image.LinkAddr),
		"paginas", codePages+image.DataPages)
	return image.Entry, nil
}

func (l *ImageLoader) placeFrame(va uint32, owner models.Owner) (int, error) {
	if int(va) < l.mm.Memory.Size() {
		if err := l.mm.Ledger.Allocate(va, owner); err == nil {
			return models.PageNumber(va), nil
		}
	}
	frame, ok := l.mm.Ledger.AcquireFree(owner)
	if !ok {
		return -1, ErrOutOfMemory
	}
	return frame, nil
}
