package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const shutdownTimeout = 2 * time.Second

// InitServer inicializa el servidor y lo mantiene escuchando hasta que se cancele ctx.
// En caso de no poder levantarlo retorna un error.
//
// Parámetros:
//   - ctx: al cancelarse se apaga el servidor de forma ordenada
//   - port: puerto donde se iniciará el servidor
//   - handler: el mux con los endpoints registrados
//
// Ejemplo:
//
//	func main() {
//		mux := http.NewServeMux()
//		mux.HandleFunc("GET /", handlers.HandshakeHandler("Bienvenido al módulo de Kernel"))
//		if err := server.InitServer(ctx, models.KernelConfig.PortKernel, mux); err != nil {
//			slog.Error(fmt.Sprintf("error initializing server: %v", err))
//		}
//	}
func InitServer(ctx context.Context, port int, handler http.Handler) error {
	addr := ":" + strconv.Itoa(port)
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		slog.Error(fmt.Sprintf("Error al escuchar en el puerto %s: %v", addr, err))
	}
	return err
}

// SendJsonResponse retorna la respuesta del servidor en formato JSON
//
// Parámetros:
//   - writer: el http.ResponseWriter con el que se escribe la respuesta HTTP
//   - data: cualquier estructura de datos que querés enviar al cliente, se convierte automáticamente a JSON.
func SendJsonResponse(writer http.ResponseWriter, data interface{}) {
	response, err := json.Marshal(data)
	if err != nil {
		http.Error(writer, "Error al convertir datos a JSON", http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write(response)
}
