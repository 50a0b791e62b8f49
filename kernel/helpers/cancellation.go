package helpers

import (
	"context"
	"fmt"
	"log/slog"

	tty "github.com/mattn/go-tty"
)

// ContextPlatform responde la consulta de cancelación del kernel a partir de un context.
type ContextPlatform struct {
	ctx context.Context
}

func NewContextPlatform(ctx context.Context) *ContextPlatform {
	return &ContextPlatform{ctx: ctx}
}

// PollCancellation no bloquea: indica si el context ya fue cancelado.
func (p *ContextPlatform) PollCancellation() bool {
	select {
	case <-p.ctx.Done():
		return true
	default:
		return false
	}
}

// RuneReader es la parte de la terminal que usa el lector de teclado.
type RuneReader interface {
	ReadRune() (rune, error)
}

const ctrlC = 0x03

// WatchKeyboard abre la terminal y cancela al presionar 'q' o Ctrl-C. Si no hay terminal no hace nada.
func WatchKeyboard(ctx context.Context, cancel context.CancelFunc) {
	terminal, err := tty.Open()
	if err != nil {
		slog.Debug(fmt.Sprintf("Sin terminal para leer el teclado: %v", err))
		return
	}

	go func() {
		<-ctx.Done()
		_ = terminal.Close()
	}()
	go watchKeys(terminal, cancel)
}

func watchKeys(reader RuneReader, cancel context.CancelFunc) {
	for {
		key, err := reader.ReadRune()
		if err != nil {
			return
		}
		if key == 'q' || key == 'Q' || key == ctrlC {
			slog.Info("Se pidió detener el sistema desde el teclado")
			cancel()
			return
		}
	}
}
