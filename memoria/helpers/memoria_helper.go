package helpers

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// CreateDirectory crea un directorio en el path especificado.
func CreateDirectory(dir string) error {
	err := os.MkdirAll(dir, os.ModePerm)

	if err != nil {
		slog.Error(fmt.Sprintf("Error al crear el directorio %s: %v", dir, err))
		return err
	}

	slog.Debug(fmt.Sprintf("Directorio %s creado o ya existía.", dir))
	return nil
}

// PrepareOutput crea el directorio donde se va a escribir file.
func PrepareOutput(file string) error {
	dir := filepath.Dir(file)
	if dir == "." {
		return nil
	}
	return CreateDirectory(dir)
}
