package models

import (
	"fmt"
	"strings"
)

type Config struct {
	Quantum        int    `json:"quantum"`
	TlbEntries     int    `json:"tlb_entries"`
	TlbReplacement string `json:"tlb_replacement"`
}

const (
	DefaultQuantum    = 8
	DefaultTlbEntries = 4

	TlbFIFO = "FIFO"
	TlbLRU  = "LRU"
)

// DefaultConfig devuelve la CPU por defecto: timer cada 8 instrucciones y TLB de 4 entradas LRU.
func DefaultConfig() Config {
	return Config{Quantum: DefaultQuantum, TlbEntries: DefaultTlbEntries, TlbReplacement: TlbLRU}
}

func (c Config) Validate() error {
	if c.Quantum <= 0 {
		return fmt.Errorf("quantum debe ser positivo, es %d", c.Quantum)
	}
	if c.TlbEntries < 0 {
		return fmt.Errorf("tlb_entries no puede ser negativo, es %d", c.TlbEntries)
	}
	switch strings.ToUpper(c.TlbReplacement) {
	case TlbFIFO, TlbLRU:
	default:
		return fmt.Errorf("tlb_replacement %q inválido", c.TlbReplacement)
	}
	return nil
}

type TLBEntry struct {
	PageNumber int
	Frame      int
	Writable   bool
	User       bool
	LastUsed   int64 //contador para LRU
}
