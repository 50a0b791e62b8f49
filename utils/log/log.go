package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// InitLogger permite loguear tanto en consola como en archivo según el nivel que se le pase.
// Devuelve una función para cerrar el archivo de log al terminar.
//
// Parámetros:
//   - logPath: la ubicación donde se va encontrar el archivo
//   - logLevel: nivel de logueo, este dato viene definido en el archivo de config.
//
// Ejemplo:
//
//	func main() {
//		closeLog := log.InitLogger("./logs/kernel.log", "INFO")
//		defer closeLog()
//	}
func InitLogger(logPath string, logLevel string) func() {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		panic(err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		panic(err)
	}

	// Consola y archivo a la vez.
	logger, levelErr := NewLogger(io.MultiWriter(os.Stdout, logFile), logLevel)
	slog.SetDefault(logger)

	if levelErr != nil {
		slog.Warn(levelErr.Error())
	}

	slog.Debug("Se ha configurado correctamente el logger y el archivo de configuración. ")
	return func() { _ = logFile.Close() }
}

// NewLogger crea un logger de texto sobre el writer indicado. Si el nivel no existe se usa INFO y se devuelve el error.
func NewLogger(writer io.Writer, logLevel string) (*slog.Logger, error) {
	level, err := convertStringToLogLevel(logLevel)

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler), err
}

// convertStringToLogLevel modifica dinámicamente el nivel de log que deseamos tener en el sistema.
func convertStringToLogLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("No existe %s, se coloca INFO por defecto. ", levelStr)
	}
}
