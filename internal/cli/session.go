package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/msgledger/internal/config"
	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/message"
	"github.com/roach88/msgledger/internal/store"
	"github.com/roach88/msgledger/internal/store/badgerstore"
)

// session is an open ledger with the message program registered.
type session struct {
	cfg     *config.Config
	backend ledger.Backend
	rt      *ledger.Runtime
	prog    *message.Program
}

// openSession opens the configured backend and builds a runtime over it.
// Failures are command errors.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}

	rt, err := ledger.New(ctx, backend, ledger.WithRent(cfg.LedgerRent()))
	if err != nil {
		backend.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start runtime", err)
	}

	prog, err := message.New(cfg.Program.ID, cfg.Program.RecordSpace)
	if err != nil {
		backend.Close()
		return nil, WrapExitError(ExitCommandError, "invalid message program", err)
	}
	if err := rt.Register(prog); err != nil {
		backend.Close()
		return nil, WrapExitError(ExitCommandError, "failed to register message program", err)
	}

	slog.Debug("ledger opened",
		"driver", cfg.Ledger.Driver,
		"path", cfg.Ledger.Path,
		"program_id", prog.ID())
	return &session{cfg: cfg, backend: backend, rt: rt, prog: prog}, nil
}

func openBackend(cfg *config.Config) (ledger.Backend, error) {
	switch cfg.Ledger.Driver {
	case config.DriverSQLite:
		return store.Open(cfg.Ledger.Path)
	case config.DriverBadger:
		return badgerstore.Open(cfg.Ledger.Path)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Ledger.Driver)
	}
}

func (s *session) Close() error {
	return s.backend.Close()
}

// client returns a message client that draws UUIDv7 nonces.
func (s *session) client() *message.Client {
	return message.NewClient(s.rt, s.prog.ID(), ledger.UUIDv7Generator{})
}

// signer loads the configured keypair.
func (s *session) signer() (*ledger.Keypair, error) {
	return loadKeypair(s.cfg.Keypair)
}

func loadKeypair(path string) (*ledger.Keypair, error) {
	kp, err := ledger.LoadKeypair(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load keypair (run `msgledger keygen` first)", err)
	}
	return kp, nil
}
