package handlers

import (
	"net/http"

	"github.com/sisoputnfrba/tp-weensy-magiOS/utils/web/server"
)

// HandshakeHandler se usa para chequear la conexión al servidor de diagnóstico
//
// Parámetros:
//   - message: el mensaje que querés devolver en la respuesta
//
// Ejemplo:
//
//	mux.HandleFunc("GET /kernel", handlers.HandshakeHandler("Kernel en funcionamiento 🚀"))
func HandshakeHandler(message string) func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		server.SendJsonResponse(writer, message)
	}
}
