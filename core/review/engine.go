package review

import (
	"fmt"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
)

// Stage pins a handler to the pipeline phase whose inputs it corrects:
// vacations must exist before schedules are generated, owner keys and
// assignment fixes before the resolver runs, and error skips only once all
// errors have been raised.
type Stage int

const (
	StageSetup      Stage = iota // after load, before schedule generation
	StagePreResolve              // after schedules, before the resolver
	StagePostResolve             // after slip accounting
)

type (
	// Handler applies one review type's corrections to the store. Handlers
	// must be idempotent under a full store reload followed by replay: the
	// pipeline reloads from raw inputs and replays every saved review on
	// each iteration.
	Handler interface {
		Type() string
		Stage() Stage
		Apply(s *record.Store, rev *record.Review)
	}

	// Log persists operator reviews between runs. Append-only: reviews are
	// never deleted, only soft-ignored.
	Log interface {
		LoadReviews() ([]record.Review, error)
		SaveReviews(reviews ...record.Review) error
	}
)

// Engine is an explicit handler registry, constructed by the pipeline
// driver and threaded through as a dependency. Handlers run in
// registration order within their stage.
type Engine struct {
	log      core.Logger
	handlers []Handler
	byType   map[string]Handler
}

func NewEngine(log core.Logger) *Engine {
	return &Engine{log: log, byType: make(map[string]Handler)}
}

func (e *Engine) Register(handlers ...Handler) {
	for _, h := range handlers {
		if _, ok := e.byType[h.Type()]; ok {
			continue // first registration wins
		}
		e.handlers = append(e.handlers, h)
		e.byType[h.Type()] = h
	}
}

// RegisterDefaults wires the built-in handlers in their mandated order:
// vacations earliest (schedules depend on them), ignore_review next so it
// can disable anything later, then the rest.
func (e *Engine) RegisterDefaults() {
	e.Register(
		&addVacationHandler{},
		&ignoreReviewHandler{},
		&addOwnerKeyHandler{},
		&setAssignmentHandler{},
		&setDueDateHandler{},
		&skipErrorHandler{},
	)
}

// ApplyStage replays every non-ignored review whose handler belongs to
// `stage`, scanning reviews per handler in registration order. After the
// final stage, reviews with no registered handler surface as errors rather
// than silently no-opping.
func (e *Engine) ApplyStage(s *record.Store, stage Stage) {
	for _, h := range e.handlers {
		if h.Stage() != stage {
			continue
		}
		for _, rev := range s.Reviews() {
			if rev.IsIgnored() || rev.Type != h.Type() {
				continue
			}
			e.log.Debug("applying review", "id", rev.ID, "type", rev.Type)
			h.Apply(s, rev)
		}
	}
	if stage == StagePostResolve {
		e.flagUnknown(s)
	}
}

func (e *Engine) flagUnknown(s *record.Store) {
	for _, rev := range s.Reviews() {
		if rev.IsIgnored() {
			continue
		}
		if _, ok := e.byType[rev.Type]; !ok {
			s.ThrowError(record.TagUnknownReviewType,
				fmt.Sprintf("review %s has unknown type %q", rev.ID, rev.Type),
				[]string{"ignore_review", "skip_error"},
				map[string]string{"reviewID": rev.ID, "reviewType": rev.Type})
		}
	}
}
