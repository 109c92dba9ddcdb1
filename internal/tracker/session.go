// Package tracker owns the food table and the meal ledger of one session and
// applies user events to them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"nutrition-tracker/internal/ledger"
	"nutrition-tracker/internal/models"
	"nutrition-tracker/internal/nutrition"
)

// RenderState is what a front end needs to draw one frame.
type RenderState struct {
	Title   string
	Notes   string
	Rows    []models.Row
	Total   models.Values
	Foods   []string
	Dirty   bool
	Status  string
	Err     error
	Elapsed time.Duration
}

// Updater is driven once per frame by a front end.
type Updater interface {
	Update(dt time.Duration) RenderState
}

// Archive stores ledger snapshots on save.
type Archive interface {
	SaveLedger(ctx context.Context, doc models.Document) (string, error)
}

// Session is the application context. It is not safe for concurrent use;
// other goroutines hand work to it through the front end's event loop.
type Session struct {
	foods    *nutrition.Table
	ledger   *ledger.Ledger
	savePath string
	archive  Archive
	logger   zerolog.Logger
	ctx      context.Context

	pending []Event
	dirty   bool
	status  string
	lastErr error
	elapsed time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithArchive stores a snapshot in archive on every save.
func WithArchive(archive Archive) Option {
	return func(s *Session) { s.archive = archive }
}

// WithLogger sets the session logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithContext bounds blocking work such as archive writes.
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.ctx = ctx }
}

// WithLedger starts the session from an existing ledger instead of an empty one.
func WithLedger(l *ledger.Ledger) Option {
	return func(s *Session) { s.ledger = l }
}

// NewSession creates a session over foods that saves to savePath.
func NewSession(foods *nutrition.Table, savePath string, opts ...Option) *Session {
	s := &Session{
		foods:    foods,
		savePath: savePath,
		logger:   zerolog.Nop(),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ledger == nil {
		s.ledger = ledger.New(foods)
	} else {
		s.ledger.SetFoods(foods)
	}
	return s
}

// Ledger exposes the session's ledger for read access.
func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// Foods returns the current food table.
func (s *Session) Foods() *nutrition.Table {
	return s.foods
}

// Post queues an event for the next Update.
func (s *Session) Post(ev Event) {
	s.pending = append(s.pending, ev)
}

// Update applies queued events in order and returns the state to draw.
// A rejected event sets Err but does not stop the ones after it.
func (s *Session) Update(dt time.Duration) RenderState {
	s.elapsed += dt

	pending := s.pending
	s.pending = nil
	if len(pending) > 0 {
		s.lastErr = nil
	}
	for _, ev := range pending {
		if err := s.Apply(ev); err != nil {
			s.lastErr = err
		}
	}

	return s.State()
}

// Apply runs one event immediately.
func (s *Session) Apply(ev Event) error {
	if ev == nil {
		return errors.New("nil event")
	}
	if err := ev.apply(s); err != nil {
		s.logger.Debug().Err(err).Str("event", ev.name()).Msg("event rejected")
		return fmt.Errorf("%s: %w", ev.name(), err)
	}
	s.logger.Debug().Str("event", ev.name()).Msg("event applied")
	return nil
}

// State returns the current render state without applying anything.
func (s *Session) State() RenderState {
	return RenderState{
		Title:   s.ledger.Title,
		Notes:   s.ledger.Notes,
		Rows:    s.ledger.Rows(),
		Total:   s.ledger.Total(),
		Foods:   s.foods.Names(),
		Dirty:   s.dirty,
		Status:  s.status,
		Err:     s.lastErr,
		Elapsed: s.elapsed,
	}
}

func (s *Session) save(ctx context.Context) error {
	data, err := s.ledger.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.savePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create save directory: %w", err)
		}
	}
	if err := writeFileAtomic(s.savePath, data); err != nil {
		return err
	}

	// The file is the ledger of record; an archive failure leaves it saved.
	s.dirty = false
	s.status = "saved to " + s.savePath
	s.logger.Info().Str("path", s.savePath).Int("rows", s.ledger.Len()).Msg("ledger saved")

	if s.archive != nil {
		id, err := s.archive.SaveLedger(ctx, s.ledger.Document())
		if err != nil {
			s.status += " (archive failed)"
			return fmt.Errorf("saved to %s but failed to archive ledger: %w", s.savePath, err)
		}
		s.status += " (archived " + id + ")"
		s.logger.Info().Str("id", id).Msg("ledger archived")
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace save file: %w", err)
	}
	return nil
}

// LoadLedger reads a save file. A missing file yields an empty ledger.
func LoadLedger(path string, foods *nutrition.Table) (*ledger.Ledger, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ledger.New(foods), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read save file: %w", err)
	}
	return ledger.Unmarshal(data, foods)
}
