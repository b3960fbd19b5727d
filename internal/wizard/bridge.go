package wizard

import (
	"context"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/gradeloop/gradeloop/internal/gradingsession"
)

const msgStepsInOrder = "follow the steps in order"

// Navigator abstracts the address bar. Replace rewrites the query in place
// (history replace, never a new entry).
type Navigator interface {
	Query() url.Values
	Replace(q url.Values)
}

// Bridge keeps the ?step=N query parameter and the store's authoritative
// step in agreement, in both directions, without feedback loops.
type Bridge struct {
	store *Store
	nav   Navigator
	warn  func(msg string)

	// lastSynced remembers the URL step this bridge last pushed into the
	// store. Without it, a URL rewrite caused by the store-to-URL direction
	// would bounce straight back and re-trigger a step change. It also
	// covers the attempted value on failure, so an identical URL state never
	// retries against a persistently failing backend.
	lastSynced int
}

// NewBridge wires a bridge to a store and navigator. warn receives the
// user-facing messages (forward-click rejections, failed URL-driven
// transitions); nil logs them.
func NewBridge(store *Store, nav Navigator, warn func(string)) *Bridge {
	if warn == nil {
		warn = func(msg string) { log.Printf("wizard: %s", msg) }
	}
	return &Bridge{store: store, nav: nav, warn: warn}
}

// RequestedStep parses a ?step= value: an integer within the step range, or
// 0 for anything missing, malformed or out of range. Invalid values are
// ignored, not rewritten and not erred; the store's own step stays
// authoritative until a valid one appears.
func RequestedStep(q url.Values) int {
	raw := strings.TrimSpace(q.Get("step"))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < gradingsession.StepMin || n > gradingsession.StepMax {
		return 0
	}
	return n
}

// Sync reconciles URL and store once, in both directions. Call it after
// every navigation change and every store state change; it is a no-op while
// the store is still initializing, which keeps the async Initialize from
// racing premature navigation.
func (b *Bridge) Sync(ctx context.Context) {
	st := b.store.Snapshot()
	if st.Initializing {
		return
	}

	// URL -> store
	switch req := RequestedStep(b.nav.Query()); {
	case req == 0:
		b.lastSynced = 0
	case req == st.Step:
		b.lastSynced = req
	case b.lastSynced == req:
		// this exact URL state was already attempted; don't retry
	default:
		b.lastSynced = req
		if err := b.store.GoToStep(ctx, req, GoToStepOptions{}); err != nil {
			b.warn(NormalizeError(err))
		}
	}

	// Store -> URL. Re-snapshot: the transition above may have moved us.
	st = b.store.Snapshot()
	if st.Initializing {
		return
	}
	q := b.nav.Query()
	if q.Get("step") != strconv.Itoa(st.Step) {
		q.Set("step", strconv.Itoa(st.Step))
		b.nav.Replace(q)
	}
}

// HandleStepClick handles a direct click on a step indicator. Only backward
// navigation is allowed here; forward progress must go through the explicit
// step-completion actions, which validate before calling GoToStep.
func (b *Bridge) HandleStepClick(ctx context.Context, target int) {
	st := b.store.Snapshot()
	if target == st.Step {
		return
	}
	if target > st.Step {
		b.warn(msgStepsInOrder)
		return
	}
	if err := b.store.GoToStep(ctx, target, GoToStepOptions{}); err != nil {
		b.warn(NormalizeError(err))
	}
}

// Run subscribes to the store's bus and re-syncs after every state change
// until ctx is done. Publishes are coalesced through a 1-slot channel so a
// sync that itself mutates state cannot re-enter the bus.
func (b *Bridge) Run(ctx context.Context) {
	bus := b.store.Events()
	if bus == nil {
		return
	}
	kick := make(chan struct{}, 1)
	cancel := bus.Subscribe(func(e Event) {
		if _, ok := e.(StateChanged); !ok {
			return
		}
		select {
		case kick <- struct{}{}:
		default:
		}
	})
	defer cancel()

	b.Sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-kick:
			b.Sync(ctx)
		}
	}
}
