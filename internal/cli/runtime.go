package cli

import (
	"context"
	"errors"

	"github.com/kingrea/signroll/internal/artifact"
	"github.com/kingrea/signroll/internal/canvas"
	"github.com/kingrea/signroll/internal/config"
	"github.com/kingrea/signroll/internal/eventbridge"
	"github.com/kingrea/signroll/internal/kv"
	"github.com/kingrea/signroll/internal/logbook"
	"github.com/kingrea/signroll/internal/logging"
	"github.com/kingrea/signroll/internal/roster"
	"github.com/kingrea/signroll/internal/submit"
)

// runtime is everything a command needs, opened from one base directory.
type runtime struct {
	cfg     *config.Config
	diag    *logging.Logger
	book    *logbook.Logbook
	slots   kv.Store
	store   *roster.Store
	surface *canvas.Surface
	encoder artifact.Encoder
}

func openRuntime(opts *RootOptions, memory bool) (*runtime, error) {
	if err := config.InitSignrollDir(opts.Dir); err != nil {
		return nil, WrapExitError(ExitCommandError, "initialize .signroll directory", err)
	}
	cfg, err := config.NewConfig(opts.Dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	names, err := cfg.Roster()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load roster", err)
	}
	diag, err := logging.New(opts.Dir)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "open diagnostics log", err)
	}
	book, err := logbook.New(cfg.JourneyLogPath())
	if err != nil {
		_ = diag.Close()
		return nil, WrapExitError(ExitFailure, "open journal", err)
	}

	var slots kv.Store
	if memory {
		slots = kv.NewMemory()
	} else {
		db, err := kv.OpenSQLite(cfg.StorePath())
		if err != nil {
			_ = diag.Close()
			return nil, WrapExitError(ExitFailure, "open slot database", err)
		}
		slots = db
	}

	return &runtime{
		cfg:     cfg,
		diag:    diag,
		book:    book,
		slots:   slots,
		store:   roster.NewStore(slots, names, roster.WithSlotKey(cfg.SlotKey()), roster.WithLogger(diag)),
		surface: canvas.New(cfg.CanvasOptions()),
		encoder: cfg.Encoder(),
	}, nil
}

func (rt *runtime) service(opts ...submit.Option) *submit.Service {
	opts = append([]submit.Option{submit.WithLogger(rt.diag)}, opts...)
	return submit.NewService(rt.store, rt.surface, rt.encoder, opts...)
}

// status projects the current table into names and flags. The revision is
// read first so a concurrent write shows up as a newer revision later.
func (rt *runtime) status(ctx context.Context) eventbridge.RosterStatus {
	revision := rt.store.Revision(ctx)
	table := rt.store.Load(ctx)
	unsigned := rt.store.Roster().ListUnsigned(table)
	names := make([]string, 0, len(unsigned))
	for _, p := range unsigned {
		names = append(names, p.Name)
	}
	return eventbridge.RosterStatus{
		Unsigned: names,
		Complete: roster.IsComplete(table),
		Revision: revision,
	}
}

func (rt *runtime) Close() error {
	return errors.Join(rt.slots.Close(), rt.diag.Close())
}
