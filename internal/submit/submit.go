// Package submit wires a capture surface to the roster store. A submission
// either commits exactly one signature or changes nothing.
package submit

import (
	"context"
	"image"

	"github.com/kingrea/signroll/internal/canvas"
	"github.com/kingrea/signroll/internal/roster"
)

// RosterStore is the persistence the service re-reads before every commit.
type RosterStore interface {
	Roster() roster.Roster
	Load(ctx context.Context) roster.Table
	Save(ctx context.Context, table roster.Table) error
}

// Encoder turns the raster into the stored artifact string.
type Encoder interface {
	Encode(img image.Image) (string, error)
}

// Notifier tells other instances the slot changed. Delivery is best effort.
type Notifier interface {
	SlotChanged(ctx context.Context)
}

// Logger receives developer diagnostics for unexpected failures.
type Logger interface {
	Printf(format string, args ...any)
}

// Outcome describes a finished submission.
type Outcome struct {
	Name     string
	Index    int
	Table    roster.Table
	Unsigned []roster.Participant
	Complete bool
	Message  string
	Err      error
}

// OK reports whether the signature was committed.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Kind classifies the outcome's error.
func (o Outcome) Kind() Kind {
	return Classify(o.Err)
}

// Service runs submissions against one surface and one store.
type Service struct {
	store    RosterStore
	surface  canvas.RasterSurface
	encoder  Encoder
	notifier Notifier
	logger   Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier announces successful commits to other instances.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger routes unexpected failures to l.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService builds a submission service.
func NewService(store RosterStore, surface canvas.RasterSurface, encoder Encoder, opts ...Option) *Service {
	s := &Service{
		store:    store,
		surface:  surface,
		encoder:  encoder,
		notifier: nopNotifier{},
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit commits the surface's signature for name. Checks run in order:
// empty surface, missing name, unknown name, then a fresh load and
// conflict check. Only after all pass is the artifact encoded and saved.
// Every rejection leaves the surface and the slot as they were.
func (s *Service) Submit(ctx context.Context, name string) Outcome {
	return s.SubmitFrom(ctx, s.surface, name)
}

// SubmitFrom is Submit against surface instead of the service's own. Callers
// that submit off their UI goroutine pass a copy of the pad here and clear the
// live pad themselves once the outcome is OK.
func (s *Service) SubmitFrom(ctx context.Context, surface canvas.RasterSurface, name string) Outcome {
	out := Outcome{Name: name, Index: -1}
	if surface.IsEmpty() {
		return s.reject(out, ErrEmptyCapture)
	}
	if name == "" {
		return s.reject(out, ErrNoParticipantSelected)
	}
	r := s.store.Roster()
	out.Index = r.IndexOf(name)
	if out.Index == -1 {
		return s.reject(out, ErrParticipantNotFound)
	}

	table := s.store.Load(ctx)
	out = withProjections(out, r, table)
	if err := roster.CheckAvailable(table, out.Index); err != nil {
		return s.reject(out, err)
	}

	artifact, err := s.encoder.Encode(surface.Image())
	if err != nil {
		return s.reject(out, &UnexpectedError{Op: "encode signature", Err: err})
	}
	next, err := roster.CommitSignature(table, out.Index, artifact)
	if err != nil {
		return s.reject(out, err)
	}
	if err := s.store.Save(ctx, next); err != nil {
		return s.reject(out, &UnexpectedError{Op: "save roster", Err: err})
	}

	surface.Clear()
	s.notifier.SlotChanged(ctx)
	out = withProjections(out, r, next)
	out.Message = Message(nil)
	return out
}

// Snapshot loads the current table and its projections without changing
// anything.
func (s *Service) Snapshot(ctx context.Context) Outcome {
	r := s.store.Roster()
	return withProjections(Outcome{Index: -1}, r, s.store.Load(ctx))
}

func (s *Service) reject(out Outcome, err error) Outcome {
	out.Err = err
	out.Message = Message(err)
	if Classify(err) == KindUnexpected {
		s.logger.Printf("submit: %s for %q: %v", Classify(err), out.Name, err)
	}
	return out
}

func withProjections(out Outcome, r roster.Roster, table roster.Table) Outcome {
	out.Table = table
	out.Unsigned = r.ListUnsigned(table)
	out.Complete = roster.IsComplete(table)
	return out
}

type nopNotifier struct{}

func (nopNotifier) SlotChanged(context.Context) {}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
