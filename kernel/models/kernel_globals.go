package models

import (
	"fmt"

	cpuModels "github.com/sisoputnfrba/tp-weensy-magiOS/cpu/models"
	memModels "github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

type Config struct {
	memModels.Config

	LogLevel          string           `json:"log_level"`
	Nproc             int              `json:"nproc"`
	CPU               cpuModels.Config `json:"cpu"`
	Programs          []int            `json:"programs"`
	PortKernel        int              `json:"port_kernel"`
	MemshowPngPath    string           `json:"memshow_png_path"`
	MemshowEveryTicks uint             `json:"memshow_every_ticks"`
	ConsoleMemshow    bool             `json:"console_memshow"`
}

const DefaultNproc = 16

var KernelConfig *Config

// DefaultConfig devuelve la configuración de arranque por defecto: cuatro asignadores en los slots 1 a 4.
func DefaultConfig() *Config {
	return &Config{
		Config:            memModels.DefaultConfig(),
		LogLevel:          "INFO",
		Nproc:             DefaultNproc,
		CPU:               cpuModels.DefaultConfig(),
		Programs:          []int{0, 1, 2, 3},
		MemshowEveryTicks: 50,
	}
}

// Validate controla los valores del archivo de configuración.
func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.Nproc < 2 {
		return fmt.Errorf("nproc debe ser al menos 2, es %d", c.Nproc)
	}
	if err := c.CPU.Validate(); err != nil {
		return err
	}
	if len(c.Programs) == 0 || len(c.Programs) > c.Nproc-1 {
		return fmt.Errorf("se piden %d programas para %d slots", len(c.Programs), c.Nproc-1)
	}
	if c.PortKernel < 0 || c.PortKernel > 65535 {
		return fmt.Errorf("port_kernel %d inválido", c.PortKernel)
	}
	return nil
}
