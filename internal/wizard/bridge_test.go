package wizard_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gradeloop/gradeloop/internal/gradingsession"
	"github.com/gradeloop/gradeloop/internal/wizard"
)

type fakeNavigator struct {
	mu       sync.Mutex
	query    url.Values
	replaces int
}

func newFakeNavigator(rawQuery string) *fakeNavigator {
	q, _ := url.ParseQuery(rawQuery)
	return &fakeNavigator{query: q}
}

func (n *fakeNavigator) Query() url.Values {
	n.mu.Lock()
	defer n.mu.Unlock()
	// callers may mutate the returned values before Replace, hand out a copy
	out := url.Values{}
	for k, vs := range n.query {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func (n *fakeNavigator) Replace(q url.Values) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replaces++
	n.query = q
}

func (n *fakeNavigator) stepParam() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.query.Get("step")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

type warnRecorder struct{ msgs []string }

func (w *warnRecorder) record(msg string) { w.msgs = append(w.msgs, msg) }

func initializedStore(t *testing.T, gw *fakeGateway, step int, teacherID int64) *wizard.Store {
	t.Helper()
	gw.session = &gradingsession.Session{
		ID: 300, TeacherID: teacherID, CurrentStep: step,
		Status: gradingsession.StatusActive, Payload: map[string]interface{}{},
	}
	store := wizard.NewStore(gw, nil)
	store.Initialize(context.Background(), wizard.InitializeOptions{TeacherID: teacherID})
	if st := store.Snapshot(); st.Err != "" {
		t.Fatalf("initialize: %s", st.Err)
	}
	return store
}

func TestRequestedStep(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"step=3", 3},
		{"step=1", 1},
		{"step=5", 5},
		{"step=0", 0},
		{"step=6", 0},
		{"step=-2", 0},
		{"step=abc", 0},
		{"step=2.5", 0},
		{"other=3", 0},
	}
	for _, c := range cases {
		q, _ := url.ParseQuery(c.raw)
		if got := wizard.RequestedStep(q); got != c.want {
			t.Errorf("RequestedStep(%q) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestBridgeAgreementIsANoOp(t *testing.T) {
	gw := newFakeGateway()
	store := initializedStore(t, gw, 3, 1)
	nav := newFakeNavigator("step=3")
	bridge := wizard.NewBridge(store, nav, nil)
	fetchBefore, _, updateBefore := gw.counts()

	bridge.Sync(context.Background())
	bridge.Sync(context.Background())

	fetchAfter, _, updateAfter := gw.counts()
	if fetchAfter != fetchBefore || updateAfter != updateBefore {
		t.Fatal("agreeing URL and store still triggered a transition")
	}
	if nav.replaces != 0 {
		t.Fatalf("replaces = %d, want 0", nav.replaces)
	}
}

func TestBridgeURLDrivesStore(t *testing.T) {
	gw := newFakeGateway()
	store := initializedStore(t, gw, 3, 1)
	nav := newFakeNavigator("step=2")
	bridge := wizard.NewBridge(store, nav, nil)

	bridge.Sync(context.Background())

	if st := store.Snapshot(); st.Step != 2 {
		t.Fatalf("step = %d, want 2 from URL", st.Step)
	}
	if got := nav.query.Get("step"); got != "2" {
		t.Fatalf("url step = %q, want 2", got)
	}
}

func TestBridgeStoreDrivesURL(t *testing.T) {
	gw := newFakeGateway()
	store := initializedStore(t, gw, 4, 1)
	nav := newFakeNavigator("")
	bridge := wizard.NewBridge(store, nav, nil)

	bridge.Sync(context.Background())

	if nav.replaces != 1 {
		t.Fatalf("replaces = %d, want 1", nav.replaces)
	}
	if got := nav.query.Get("step"); got != "4" {
		t.Fatalf("url step = %q, want 4", got)
	}
}

func TestBridgeHoldsWhileInitializing(t *testing.T) {
	gw := newFakeGateway()
	store := wizard.NewStore(gw, nil) // never initialized: Initializing=true
	nav := newFakeNavigator("step=5")
	bridge := wizard.NewBridge(store, nav, nil)

	bridge.Sync(context.Background())

	if fetch, create, update := gw.counts(); fetch+create+update != 0 {
		t.Fatal("bridge synced during initialization")
	}
	if nav.replaces != 0 {
		t.Fatal("bridge rewrote URL during initialization")
	}
}

func TestBridgeFailedURLSyncDoesNotRetry(t *testing.T) {
	gw := newFakeGateway()
	store := initializedStore(t, gw, 1, 1)
	gw.mu.Lock()
	gw.updateErr = &wizard.APIError{StatusCode: 500, Detail: "backend down"}
	gw.mu.Unlock()

	nav := newFakeNavigator("step=4")
	warns := &warnRecorder{}
	bridge := wizard.NewBridge(store, nav, warns.record)
	ctx := context.Background()

	bridge.Sync(ctx)
	if len(warns.msgs) != 1 || warns.msgs[0] != "backend down" {
		t.Fatalf("warns = %v, want the normalized server detail once", warns.msgs)
	}
	// the failed attempt rewrites the URL back to the store's step
	if got := nav.query.Get("step"); got != "1" {
		t.Fatalf("url step = %q, want rewound to 1", got)
	}

	// user forces the identical URL state again: no second automatic attempt
	nav.query.Set("step", "4")
	_, _, updatesBefore := gw.counts()
	bridge.Sync(ctx)
	if _, _, updatesAfter := gw.counts(); updatesAfter != updatesBefore {
		t.Fatal("identical failing URL state was retried")
	}
	if len(warns.msgs) != 1 {
		t.Fatalf("warns = %v, retry produced a second warning", warns.msgs)
	}
}

func TestForwardStepClickRejected(t *testing.T) {
	gw := newFakeGateway()
	store := initializedStore(t, gw, 2, 1)
	nav := newFakeNavigator("step=2")
	warns := &warnRecorder{}
	bridge := wizard.NewBridge(store, nav, warns.record)
	ctx := context.Background()
	fetchBefore, _, _ := gw.counts()

	bridge.HandleStepClick(ctx, 4)

	if len(warns.msgs) != 1 {
		t.Fatalf("warns = %v, want one ordering warning", warns.msgs)
	}
	if fetchAfter, _, _ := gw.counts(); fetchAfter != fetchBefore {
		t.Fatal("forward click reached the gateway")
	}
	if st := store.Snapshot(); st.Step != 2 {
		t.Fatalf("step = %d, forward click moved the step", st.Step)
	}
}

func TestBackwardStepClickNavigates(t *testing.T) {
	gw := newFakeGateway()
	store := initializedStore(t, gw, 2, 1)
	nav := newFakeNavigator("step=2")
	bridge := wizard.NewBridge(store, nav, nil)

	bridge.HandleStepClick(context.Background(), 1)

	if st := store.Snapshot(); st.Step != 1 {
		t.Fatalf("step = %d, want 1 after backward click", st.Step)
	}
}

func TestBridgeRunFollowsStoreChanges(t *testing.T) {
	gw := newFakeGateway()
	gw.session = &gradingsession.Session{
		ID: 300, TeacherID: 1, CurrentStep: 2,
		Status: gradingsession.StatusActive, Payload: map[string]interface{}{},
	}
	bus := wizard.NewBus()
	store := wizard.NewStore(gw, bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store.Initialize(ctx, wizard.InitializeOptions{TeacherID: 1})

	nav := newFakeNavigator("")
	bridge := wizard.NewBridge(store, nav, nil)
	stopped := make(chan struct{})
	go func() {
		bridge.Run(ctx)
		close(stopped)
	}()

	// wait for the initial sync to land in the URL
	waitFor(t, func() bool { return nav.stepParam() == "2" })

	if err := store.GoToStep(ctx, 3, wizard.GoToStepOptions{}); err != nil {
		t.Fatalf("GoToStep: %v", err)
	}
	waitFor(t, func() bool { return nav.stepParam() == "3" })

	cancel()
	<-stopped
}
