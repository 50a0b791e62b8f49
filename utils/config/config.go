package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Validator lo implementan las configuraciones que necesitan chequear sus valores después de decodificarse.
type Validator interface {
	Validate() error
}

// InitConfig lee el archivo de configuración y carga sus valores en config. Ante cualquier error finaliza con panic,
// ya que sin configuración el módulo no puede arrancar.
//
// Parámetros:
//   - filePath: ubicacion donde se encuentra el archivo de configuracion
//   - config: puntero a la estructura a completar
//
// Ejemplo:
//
//	func main() {
//		var kernelConfig models.Config
//		config.InitConfig("kernel/configs/kernel.json", &kernelConfig)
//	}
func InitConfig(filePath string, config interface{}) {
	if err := LoadConfig(filePath, config); err != nil {
		panic(fmt.Errorf("error al configurar el archivo %s: %w", filePath, err))
	}
}

// LoadConfig es la variante de InitConfig que devuelve el error en lugar de finalizar.
// Si config implementa Validator, se valida después de decodificar.
func LoadConfig(filePath string, config interface{}) error {
	if err := setupConfig(filePath, config); err != nil {
		return err
	}

	if validator, ok := config.(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("configuración inválida en %s: %w", filePath, err)
		}
	}
	return nil
}

func setupConfig(filePath string, config interface{}) error {
	configFile, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer configFile.Close()

	jsonParser := json.NewDecoder(configFile)
	jsonParser.DisallowUnknownFields()

	if err := jsonParser.Decode(config); err != nil {
		return err
	}

	return nil
}
