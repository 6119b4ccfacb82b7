package memory

import (
	"testing"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger/ledgertest"
)

func TestStoreContract(t *testing.T) {
	ledgertest.Run(t, func(*testing.T) ledger.Store { return New() })
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
