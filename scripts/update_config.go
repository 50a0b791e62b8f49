package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Para su uso se debe posicionar en la carpeta scripts. Las claves anidadas se separan con punto.
// ./update_config nproc 8 cpu.quantum 4 cpu.tlb_replacement FIFO
// ./update_config memory_size 1048576 programs [4]

func main() {
	// Los argumentos van en pares: clave1 valor1 clave2 valor2 ...
	if len(os.Args) < 3 || len(os.Args)%2 != 1 {
		fmt.Println("Uso: update_config <clave_1> <valor_1> [<clave_2> <valor_2> ...]")
		fmt.Println("Ejemplo: update_config nproc 8 cpu.quantum 4")
		return
	}

	updates := parseUpdates(os.Args[1:])
	fmt.Println("Valores a actualizar:")
	for k, v := range updates {
		fmt.Printf("  %s: %v\n", k, v)
	}

	configPath := filepath.Join("..", "kernel", "configs")
	err := filepath.Walk(configPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			fmt.Printf("  Error al acceder %s: %v\n", path, err)
			return nil
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		if err := updateFile(path, updates); err != nil {
			fmt.Printf("  Error en el archivo %s: %v\n", path, err)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("Error al buscar archivos en la carpeta %s: %v\n", configPath, err)
	}

	fmt.Println("\nProceso de actualización de configuraciones finalizado.")
}

// parseUpdates arma el mapa de cambios. Cada valor se interpreta como JSON y, si no lo es, como string.
func parseUpdates(args []string) map[string]interface{} {
	updates := make(map[string]interface{})
	for i := 0; i+1 < len(args); i += 2 {
		var parsedValue interface{}
		if err := json.Unmarshal([]byte(args[i+1]), &parsedValue); err != nil {
			parsedValue = args[i+1]
		}
		updates[args[i]] = parsedValue
	}
	return updates
}

func updateFile(path string, updates map[string]interface{}) error {
	fileContent, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(fileContent, &data); err != nil {
		return err
	}

	modified := applyUpdates(data, updates)
	if len(modified) == 0 {
		fmt.Printf("  No se encontraron claves a actualizar en %s.\n", path)
		return nil
	}
	for _, key := range modified {
		fmt.Printf("    Modificada '%s' en %s a '%v'\n", key, path, updates[key])
	}

	newJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, newJSON, 0644)
}

// applyUpdates modifica solo las claves que ya existen en data y devuelve cuáles cambió.
func applyUpdates(data map[string]interface{}, updates map[string]interface{}) []string {
	var modified []string
	for key, value := range updates {
		parts := strings.Split(key, ".")
		node := data
		found := true
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]interface{})
			if !ok {
				found = false
				break
			}
			node = child
		}
		last := parts[len(parts)-1]
		if _, ok := node[last]; !found || !ok {
			continue
		}
		node[last] = value
		modified = append(modified, key)
	}
	return modified
}
