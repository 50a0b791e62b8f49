package list

import "sync"

// List define las operaciones que usan el ledger y el planificador.
type List[T any] interface {
	Add(item T)               // Añade un elemento al final de la lista
	ForEach(callback func(T)) // Aplica la función a cada elemento
	GetAll() []T              // Devuelve una copia de los elementos
}

var _ List[int] = (*ArrayList[int])(nil)

// ArrayList implementa List sobre un slice protegido por un RWMutex.
type ArrayList[T any] struct {
	mu    sync.RWMutex
	items []T
}

// NewArrayList crea una lista con la capacidad inicial indicada.
func NewArrayList[T any](capacity int) *ArrayList[T] {
	return &ArrayList[T]{items: make([]T, 0, capacity)}
}

// Add inserta un elemento al final de la lista.
//
// Ejemplo:
//
//	frames := list.NewArrayList[int](4)
//	frames.Add(256)
//	frames.Add(257)
func (list *ArrayList[T]) Add(item T) {
	list.mu.Lock()
	defer list.mu.Unlock()

	list.items = append(list.items, item)
}

// ForEach aplica el callback a cada elemento en orden de inserción.
// El callback recibe una copia tomada antes de iterar, por lo que puede modificar la lista.
func (list *ArrayList[T]) ForEach(callback func(T)) {
	for _, item := range list.GetAll() {
		callback(item)
	}
}

// GetAll devuelve una copia de todos los elementos de la lista.
func (list *ArrayList[T]) GetAll() []T {
	list.mu.RLock()
	defer list.mu.RUnlock()

	items := make([]T, len(list.items))
	copy(items, list.items)
	return items
}

