package wizard

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gradeloop/gradeloop/internal/gradingsession"
	"github.com/gradeloop/gradeloop/internal/roster"
)

const (
	msgNoTeachers        = "no teachers yet: create a teacher before starting the grading workflow"
	msgTeacherUnresolved = "no teacher available: finish classroom setup first"
)

// State is the wizard's client-side view. Zero IDs mean "not set".
// Step is always the clamped form of Session.CurrentStep after a successful
// reconciliation; SelectedExamID may diverge from Session.ExamID only until
// the next round-trip confirms or overrides it.
type State struct {
	Initializing   bool
	Teachers       []roster.Teacher
	TeacherID      int64
	Session        *gradingsession.Session
	Step           int
	Exams          []roster.Exam
	ExamsLoading   bool
	SelectedExamID int64
	SavingStep     bool
	Err            string // normalized message, "" = no error
}

type InitializeOptions struct {
	TeacherID int64
}

type GoToStepOptions struct {
	ExamID  int64
	Payload map[string]interface{}
}

type ensureOptions struct {
	step    int // 0 = derive from the session
	examID  int64
	payload map[string]interface{}
}

type actionKind int

const (
	actionInitialize actionKind = iota
	actionGoToStep
	actionRefreshExams
)

// Store is the single source of truth for where a teacher is in the grading
// workflow, reconciled against the server on every transition.
//
// Store assumes at most one concurrent caller per teacher (one tab, one
// logged-in teacher). Overlapping GoToStep calls are not mutually excluded;
// gate navigation UI on SavingStep. The server's one-active-session-per-
// teacher rule is the only backstop if that assumption is violated.
type Store struct {
	gw  Gateway
	bus *Bus

	mu    sync.Mutex
	state State
	seq   map[actionKind]uint64
}

// NewStore builds a store around a gateway. bus may be nil; when set, every
// state mutation publishes a StateChanged snapshot on it.
func NewStore(gw Gateway, bus *Bus) *Store {
	return &Store{
		gw:  gw,
		bus: bus,
		state: State{
			Initializing: true,
			Step:         gradingsession.StepMin,
		},
		seq: map[actionKind]uint64{},
	}
}

// Events returns the store's bus, or nil if none was attached.
func (s *Store) Events() *Bus { return s.bus }

// Snapshot returns a copy of the current state. The Session pointer and the
// slices are shared; treat them as read-only.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) setState(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	st := s.state
	s.mu.Unlock()
	if s.bus != nil {
		s.bus.Publish(StateChanged{State: st})
	}
}

// begin issues a new sequence number for an action kind. Results are applied
// only while their number is still the latest issued, so a response arriving
// after a superseding call is discarded silently.
func (s *Store) begin(kind actionKind) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[kind]++
	return s.seq[kind]
}

func (s *Store) latest(kind actionKind, n uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[kind] == n
}

// Initialize loads teachers and exams, resolves the preferred teacher and
// reconciles its active session. It fails soft: errors land in State.Err and
// are never returned, so it is safe to fire on mount and retry blindly.
func (s *Store) Initialize(ctx context.Context, opts InitializeOptions) {
	seq := s.begin(actionInitialize)
	s.setState(func(st *State) {
		st.Initializing = true
		st.Err = ""
	})

	var teacherList []roster.Teacher
	var examList []roster.Exam
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teacherList, err = s.gw.ListTeachers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		examList, err = s.gw.ListExams(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if s.latest(actionInitialize, seq) {
			s.setState(func(st *State) {
				st.Initializing = false
				st.Err = NormalizeError(err)
			})
		}
		return
	}

	preferred := opts.TeacherID
	if preferred == 0 {
		preferred = s.Snapshot().TeacherID
	}
	if preferred == 0 && len(teacherList) > 0 {
		preferred = teacherList[0].ID
	}

	if preferred == 0 {
		if !s.latest(actionInitialize, seq) {
			return
		}
		s.setState(func(st *State) {
			st.Teachers = teacherList
			st.TeacherID = 0
			st.Session = nil
			st.Step = gradingsession.StepMin
			st.Exams = examList
			st.ExamsLoading = false
			st.SelectedExamID = 0
			st.Initializing = false
			if len(teacherList) == 0 {
				st.Err = msgNoTeachers
			}
		})
		return
	}

	sess, err := s.ensureSession(ctx, preferred, ensureOptions{})
	if err != nil {
		if s.latest(actionInitialize, seq) {
			s.setState(func(st *State) {
				st.Initializing = false
				st.Err = NormalizeError(err)
			})
		}
		return
	}
	filtered := roster.FilterByTeacher(examList, preferred)
	if !s.latest(actionInitialize, seq) {
		return
	}
	s.setState(func(st *State) {
		st.Teachers = teacherList
		st.TeacherID = preferred
		st.Session = &sess
		st.Step = gradingsession.ClampStep(sess.CurrentStep)
		st.Exams = filtered
		st.ExamsLoading = false
		if sess.ExamID != 0 {
			st.SelectedExamID = sess.ExamID
		}
		st.Initializing = false
		st.Err = ""
	})
}

// SetTeacher switches the wizard to another teacher. Teacher identity
// determines the exam filter and the session, so this is a full restart,
// not a partial mutation.
func (s *Store) SetTeacher(ctx context.Context, teacherID int64) {
	s.Initialize(ctx, InitializeOptions{TeacherID: teacherID})
}

// RefreshExams re-fetches the exam list and re-applies the teacher filter.
// Independent of session state; failures land in State.Err only.
func (s *Store) RefreshExams(ctx context.Context) {
	seq := s.begin(actionRefreshExams)
	s.setState(func(st *State) {
		st.ExamsLoading = true
		st.Err = ""
	})
	exams, err := s.gw.ListExams(ctx)
	if !s.latest(actionRefreshExams, seq) {
		return
	}
	if err != nil {
		s.setState(func(st *State) {
			st.ExamsLoading = false
			st.Err = NormalizeError(err)
		})
		return
	}
	s.setState(func(st *State) {
		st.Exams = roster.FilterByTeacher(exams, st.TeacherID)
		st.ExamsLoading = false
	})
}

// SelectExam records a local, optimistic exam choice. No network call: the
// selection is a proposal until a step transition persists it.
func (s *Store) SelectExam(examID int64) {
	s.setState(func(st *State) {
		st.SelectedExamID = examID
	})
}

func (s *Store) ClearError() {
	s.setState(func(st *State) {
		st.Err = ""
	})
}

// GoToStep persists a step transition. Unlike Initialize it returns the
// error after recording it, so callers can branch on "transition failed,
// stay put" versus "transition succeeded".
func (s *Store) GoToStep(ctx context.Context, step int, opts GoToStepOptions) error {
	step = gradingsession.ClampStep(step)

	s.mu.Lock()
	teacherID := s.state.TeacherID
	var sessionExamID int64
	if s.state.Session != nil {
		sessionExamID = s.state.Session.ExamID
	}
	s.mu.Unlock()

	if teacherID == 0 {
		s.setState(func(st *State) {
			st.Err = msgTeacherUnresolved
		})
		return ErrNoTeacher
	}

	seq := s.begin(actionGoToStep)
	s.setState(func(st *State) {
		st.SavingStep = true
		st.Err = ""
		if opts.ExamID != 0 {
			st.SelectedExamID = opts.ExamID
		}
	})

	// A step transition that doesn't touch the exam must not clear it.
	examID := opts.ExamID
	if examID == 0 {
		examID = sessionExamID
	}

	sess, err := s.ensureSession(ctx, teacherID, ensureOptions{
		step:    step,
		examID:  examID,
		payload: opts.Payload,
	})
	if err != nil {
		if s.latest(actionGoToStep, seq) {
			s.setState(func(st *State) {
				st.SavingStep = false
				st.Err = NormalizeError(err)
			})
		}
		return err
	}
	if !s.latest(actionGoToStep, seq) {
		return nil
	}
	s.setState(func(st *State) {
		st.Session = &sess
		st.Step = gradingsession.ClampStep(sess.CurrentStep)
		switch {
		case sess.ExamID != 0:
			st.SelectedExamID = sess.ExamID
		case st.SelectedExamID != 0:
			// keep the prior local choice
		default:
			st.SelectedExamID = opts.ExamID
		}
		st.SavingStep = false
		st.Err = ""
	})
	return nil
}

// CompleteRun retires the current session once the workflow has reached the
// final step, so the next Initialize starts a fresh run.
func (s *Store) CompleteRun(ctx context.Context) error {
	s.mu.Lock()
	var sessionID int64
	if s.state.Session != nil {
		sessionID = s.state.Session.ID
	}
	step := s.state.Step
	s.mu.Unlock()

	if sessionID == 0 || step != gradingsession.StepMax {
		s.setState(func(st *State) {
			st.Err = "the grading run is not at the completion step yet"
		})
		return ErrNotCompletable
	}
	if _, err := s.gw.CompleteSession(ctx, sessionID); err != nil {
		s.setState(func(st *State) {
			st.Err = NormalizeError(err)
		})
		return err
	}
	s.setState(func(st *State) {
		st.Session = nil
		st.Step = gradingsession.StepMin
		st.SelectedExamID = 0
		st.Err = ""
	})
	return nil
}

// ensureSession is the reconciliation algorithm: fetch-or-create the
// teacher's active session, then bring it in line with the requested step,
// exam and payload through a minimal-diff update. At most one create and two
// updates are issued per call, bounding latency on a flaky backend.
func (s *Store) ensureSession(ctx context.Context, teacherID int64, opts ensureOptions) (gradingsession.Session, error) {
	sess, err := s.gw.FetchActiveSession(ctx, teacherID)
	if err != nil {
		// Any fetch failure, "none active" included, means we create one.
		sess = gradingsession.Session{}
	}
	if sess.ID == 0 {
		sess, err = s.gw.CreateSession(ctx, CreateSessionRequest{
			TeacherID: teacherID,
			ExamID:    opts.examID,
			Payload:   opts.payload,
		})
		if err != nil {
			return gradingsession.Session{}, err
		}
	}

	// Resolution policy for an out-of-range server value: absent an explicit
	// request, a current_step below 1 collapses to 1.
	target := opts.step
	if target == 0 {
		if sess.CurrentStep < gradingsession.StepMin {
			target = gradingsession.StepMin
		} else {
			target = sess.CurrentStep
		}
	}

	upd := UpdateSessionRequest{}
	if sess.CurrentStep != target {
		v := target
		upd.CurrentStep = &v
	}
	if opts.examID != 0 && sess.ExamID != opts.examID {
		v := opts.examID
		upd.ExamID = &v
	}
	if opts.payload != nil {
		// Merge over the server's payload, never replace wholesale.
		merged := make(map[string]interface{}, len(sess.Payload)+len(opts.payload))
		for k, v := range sess.Payload {
			merged[k] = v
		}
		for k, v := range opts.payload {
			merged[k] = v
		}
		upd.Payload = merged
	}

	if upd.CurrentStep != nil || upd.ExamID != nil || upd.Payload != nil {
		sess, err = s.gw.UpdateSession(ctx, sess.ID, upd)
		if err != nil {
			return gradingsession.Session{}, err
		}
	}

	// Some backends echo an invalid current_step even after the fix above;
	// force it to 1 with one corrective write. Whether a sub-1 step is a bug
	// or a "not yet started" sentinel is unconfirmed, so keep this guard.
	if sess.CurrentStep < gradingsession.StepMin {
		one := gradingsession.StepMin
		sess, err = s.gw.UpdateSession(ctx, sess.ID, UpdateSessionRequest{CurrentStep: &one})
		if err != nil {
			return gradingsession.Session{}, err
		}
	}
	return sess, nil
}
