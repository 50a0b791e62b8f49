package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/services"
	"github.com/sisoputnfrba/tp-weensy-magiOS/utils/web/server"
)

// SnapshotSource es de donde los handlers leen la última foto de memoria.
type SnapshotSource interface {
	Latest() (*models.MemorySnapshot, bool)
}

// latest devuelve la última foto o responde 503 si el kernel todavía no publicó ninguna.
func latest(w http.ResponseWriter, source SnapshotSource) (*models.MemorySnapshot, bool) {
	snapshot, ok := source.Latest()
	if !ok {
		http.Error(w, "Todavía no hay fotos de memoria", http.StatusServiceUnavailable)
	}
	return snapshot, ok
}

// pidParam lee el pid de la query. Si no viene se usa el proceso actual de la foto.
func pidParam(r *http.Request, snapshot *models.MemorySnapshot) (int, error) {
	pidStr := r.URL.Query().Get("pid")
	if pidStr == "" {
		return snapshot.Current, nil
	}
	return strconv.Atoi(pidStr)
}

// SnapshotHandler devuelve la última foto completa en JSON.
func SnapshotHandler(source SnapshotSource) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := latest(w, source)
		if !ok {
			return
		}
		server.SendJsonResponse(w, snapshot)
	}
}

// VirtualHandler devuelve el espacio de direcciones de /memoria/virtual/{pid}.
func VirtualHandler(source SnapshotSource) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, err := strconv.Atoi(r.PathValue("pid"))
		if err != nil {
			http.Error(w, "PID inválido", http.StatusBadRequest)
			return
		}
		snapshot, ok := latest(w, source)
		if !ok {
			return
		}
		process, ok := snapshot.Process(pid)
		if !ok {
			http.Error(w, fmt.Sprintf("El proceso %d no está vivo", pid), http.StatusNotFound)
			return
		}
		server.SendJsonResponse(w, process)
	}
}

// MemshowTextHandler dibuja en texto el mapa físico y el del proceso pedido (o el actual).
func MemshowTextHandler(source SnapshotSource) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := latest(w, source)
		if !ok {
			return
		}
		pid, err := pidParam(r, snapshot)
		if err != nil {
			http.Error(w, "PID inválido", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		renderer := services.TextRenderer{}
		if err := renderer.RenderPhysical(w, snapshot.Physical); err != nil {
			slog.Warn(fmt.Sprintf("Error al escribir el mapa físico: %v", err))
			return
		}
		if process, ok := snapshot.Process(pid); ok {
			if err := renderer.RenderVirtual(w, strconv.Itoa(pid), process.Pages, snapshot.Physical); err != nil {
				slog.Warn(fmt.Sprintf("Error al escribir el mapa virtual del proceso %d: %v", pid, err))
			}
		}
	}
}

// MemshowPNGHandler devuelve la imagen del mapa de memoria.
func MemshowPNGHandler(source SnapshotSource, renderer services.PNGRenderer) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := latest(w, source)
		if !ok {
			return
		}
		pid, err := pidParam(r, snapshot)
		if err != nil {
			http.Error(w, "PID inválido", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		if err := renderer.Encode(w, snapshot, pid); err != nil {
			slog.Warn(fmt.Sprintf("Error al codificar el PNG: %v", err))
		}
	}
}
