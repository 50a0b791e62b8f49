package services

import (
	"sync"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

// SnapshotStore guarda la última foto publicada por el kernel para que la lean los handlers HTTP.
// El kernel corre en un único hilo; el mutex protege solo el intercambio con los handlers.
type SnapshotStore struct {
	mu     sync.RWMutex
	latest *models.MemorySnapshot
}

// Visualize reemplaza la foto guardada.
func (s *SnapshotStore) Visualize(snapshot *models.MemorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = snapshot
}

// Latest devuelve la última foto, si hubo alguna.
func (s *SnapshotStore) Latest() (*models.MemorySnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}
