package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/realmall/storefront/internal/images"
	"github.com/realmall/storefront/internal/models"
	"github.com/realmall/storefront/internal/providers"
)

// FailureMessage is the only error text a user ever sees from a failed edit.
const FailureMessage = "AI could not process this request. Please try a different prompt."

// ErrUnknownPreset is returned by ApplyPreset for labels outside Presets.
var ErrUnknownPreset = errors.New("unknown preset")

// Presets are the quick-style shortcuts offered next to the prompt box.
var Presets = []string{"Retro Vibe", "Studio Light", "Beach Scene", "Golden Hour", "Noir"}

// PresetPrompt builds the instruction a preset writes into the prompt buffer.
func PresetPrompt(label string) string {
	return fmt.Sprintf("Apply a %s effect to this image.", strings.ToLower(label))
}

// Resolver turns an image reference into bytes and a media type.
type Resolver interface {
	Resolve(ctx context.Context, ref images.Ref) ([]byte, string, error)
}

// ImageApplier receives the committed image. It reports false when the
// product no longer exists.
type ImageApplier interface {
	ApplyEditedImage(productID string, image images.Ref) bool
}

type State int

const (
	StateOpen State = iota + 1
	StateSubmitting
	StateClosed
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateSubmitting:
		return "submitting"
	case StateClosed:
		return "closed"
	case StateCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Outcome reports what a Submit call did.
type Outcome int

const (
	// OutcomeRejected: preconditions failed, nothing was sent.
	OutcomeRejected Outcome = iota + 1
	// OutcomeApplied: the edited image was appended to the history.
	OutcomeApplied
	// OutcomeFailed: the edit failed and the error message was recorded.
	OutcomeFailed
	// OutcomeDiscarded: the session ended while the request was in flight.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Session is the image-edit workflow for one product. The history always
// holds the product's original image at index 0 and the current image last.
type Session struct {
	id        string
	productID string
	openedAt  time.Time

	editor   providers.ImageEditor
	resolver Resolver

	mu         sync.Mutex
	history    []images.Ref
	prompt     string
	processing bool
	lastErr    string
	state      State
	cancel     context.CancelFunc
}

// Open starts a session for product with its current image as the only
// history entry.
func Open(product models.Product, editor providers.ImageEditor, resolver Resolver) *Session {
	return &Session{
		id:        uuid.NewString(),
		productID: product.ID,
		openedAt:  time.Now(),
		editor:    editor,
		resolver:  resolver,
		history:   []images.Ref{product.Image},
		state:     StateOpen,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) ProductID() string { return s.productID }

// SetPrompt replaces the prompt buffer verbatim.
func (s *Session) SetPrompt(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = text
}

// ApplyPreset fills the prompt buffer with the instruction for label.
func (s *Session) ApplyPreset(label string) error {
	for _, p := range Presets {
		if strings.EqualFold(p, label) {
			s.SetPrompt(PresetPrompt(p))
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownPreset, label)
}

// Submit sends the current image and prompt to the image editor. It is a
// no-op while a request is in flight, when the prompt is blank, or once the
// session has ended. Failures never escape: they are recorded as the
// session's error message and history is left untouched.
func (s *Session) Submit(ctx context.Context) Outcome {
	sub, ok := s.begin(ctx)
	if !ok {
		return OutcomeRejected
	}
	return s.finish(sub)
}

// Start is Submit without waiting: the session is marked as processing
// before Start returns and the request completes on its own goroutine. The
// channel receives the outcome; it is nil when the submit was rejected.
func (s *Session) Start(ctx context.Context) <-chan Outcome {
	sub, ok := s.begin(ctx)
	if !ok {
		return nil
	}
	done := make(chan Outcome, 1)
	go func() {
		done <- s.finish(sub)
	}()
	return done
}

type submission struct {
	ctx    context.Context
	cancel context.CancelFunc
	source images.Ref
	prompt string
}

func (s *Session) begin(ctx context.Context) (submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen || s.processing || strings.TrimSpace(s.prompt) == "" {
		return submission{}, false
	}
	s.processing = true
	s.lastErr = ""

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return submission{
		ctx:    ctx,
		cancel: cancel,
		source: s.history[len(s.history)-1],
		prompt: s.prompt,
	}, true
}

func (s *Session) finish(sub submission) Outcome {
	start := time.Now()
	edited, err := s.runEdit(sub.ctx, sub.source, sub.prompt)
	sub.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil
	s.processing = false

	// The session may have been closed or committed while the request ran.
	if s.state != StateOpen {
		slog.Info("Discarding edit result for ended session", "session_id", s.id, "product_id", s.productID, "state", s.state)
		return OutcomeDiscarded
	}

	if err != nil {
		s.lastErr = FailureMessage
		slog.Error("Image edit failed", "session_id", s.id, "product_id", s.productID, "err", err)
		return OutcomeFailed
	}

	s.history = append(s.history, edited)
	s.prompt = ""
	slog.Info("Image edit applied", "session_id", s.id, "product_id", s.productID, "history_depth", len(s.history), "duration", time.Since(start))
	return OutcomeApplied
}

func (s *Session) runEdit(ctx context.Context, source images.Ref, prompt string) (images.Ref, error) {
	data, mediaType, err := s.resolver.Resolve(ctx, source)
	if err != nil {
		return images.Ref{}, fmt.Errorf("failed to resolve source image: %w", err)
	}

	edited, err := s.editor.EditImage(ctx, providers.EditRequest{
		Image:     data,
		MediaType: mediaType,
		Prompt:    prompt,
	})
	if err != nil {
		return images.Ref{}, fmt.Errorf("image editor failed: %w", err)
	}
	if edited == nil || len(edited.Data) == 0 {
		return images.Ref{}, providers.ErrNoImage
	}

	return images.Inline(edited.Data, edited.MediaType), nil
}

// Undo drops the newest image. It never removes the original and does
// nothing while a request is in flight.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen || s.processing || len(s.history) <= 1 {
		return false
	}
	s.history = s.history[:len(s.history)-1]
	return true
}

// Close discards the session without touching the catalog. A request in
// flight is cancelled and its result dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return
	}
	s.state = StateClosed
	if s.cancel != nil {
		s.cancel()
	}
}

// Commit hands the current image to applier and ends the session. It is
// rejected while a request is in flight or after the session ended.
func (s *Session) Commit(applier ImageApplier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen || s.processing {
		return false
	}

	current := s.history[len(s.history)-1]
	if !applier.ApplyEditedImage(s.productID, current) {
		slog.Warn("Committed image for unknown product", "session_id", s.id, "product_id", s.productID)
	}
	s.state = StateCommitted
	return true
}

// View is a point-in-time snapshot of a session for display.
type View struct {
	ID           string     `json:"id"`
	ProductID    string     `json:"product_id"`
	State        string     `json:"state"`
	Current      images.Ref `json:"current_image"`
	HistoryDepth int        `json:"history_depth"`
	Prompt       string     `json:"prompt"`
	Processing   bool       `json:"processing"`
	Error        string     `json:"error,omitempty"`
	CanUndo      bool       `json:"can_undo"`
	CanGenerate  bool       `json:"can_generate"`
	OpenedAt     time.Time  `json:"opened_at"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := s.state == StateOpen
	return View{
		ID:           s.id,
		ProductID:    s.productID,
		State:        s.stateLocked().String(),
		Current:      s.history[len(s.history)-1],
		HistoryDepth: len(s.history),
		Prompt:       s.prompt,
		Processing:   s.processing,
		Error:        s.lastErr,
		CanUndo:      open && !s.processing && len(s.history) > 1,
		CanGenerate:  open && !s.processing && strings.TrimSpace(s.prompt) != "",
		OpenedAt:     s.openedAt,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.state == StateOpen && s.processing {
		return StateSubmitting
	}
	return s.state
}

// Current returns the image currently shown.
func (s *Session) Current() images.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history[len(s.history)-1]
}

// History returns a copy of the image history, oldest first.
func (s *Session) History() []images.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]images.Ref, len(s.history))
	copy(out, s.history)
	return out
}
