package backend

import (
	"context"
	"fmt"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger/memory"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	kind   BackendType
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(kind string, logger *log.Logger) (*DefaultFactory, error) {
	bt := BackendType(kind)
	if !bt.IsValid() {
		return nil, fmt.Errorf("invalid backend type %q: must be one of %v", kind, GetBackendTypeStrings())
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentBackend)
	logger.Info("Ledger backend selected", "backend", bt.String())

	return &DefaultFactory{kind: bt, logger: logger}, nil
}

func (f *DefaultFactory) Type() BackendType {
	return f.kind
}

// NewStore implements Factory.NewStore
func (f *DefaultFactory) NewStore(ctx context.Context) (ledger.Store, error) {
	switch f.kind {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(ctx, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite ledger: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", f.kind)
	}
}
