package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Adapter crea conexiones a un backend de almacenamiento.
type Adapter interface {
	// Name retorna el nombre del driver ("memory", "postgres").
	Name() string
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

// Connection es una conexión activa.
type Connection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error
	Users() UserRepository
}

// Migratable es opcional: conexiones SQL que aplican migraciones embebidas.
type Migratable interface {
	Migrate(ctx context.Context) (int, error)
}

// AdapterConfig configuración para conectar.
type AdapterConfig struct {
	Driver   string
	DSN      string
	MaxConns int32
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("store: adapter %q already registered", name))
	}
	adapters[name] = a
}

// ListAdapters retorna los drivers registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open abre una conexión con el adapter cfg.Driver.
func Open(ctx context.Context, cfg AdapterConfig) (Connection, error) {
	registryMu.RLock()
	a, ok := adapters[cfg.Driver]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: adapter %q not registered", cfg.Driver)
	}
	return a.Connect(ctx, cfg)
}
