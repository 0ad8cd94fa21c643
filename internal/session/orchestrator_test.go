package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/device"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/flow"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/platform"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/timer"
)

// fakePlatform is an in-memory platform backend.
type fakePlatform struct {
	mu sync.Mutex

	session    *model.Session
	validation *platform.Validation
	questions  []model.Question

	transcript    string
	transcribeErr error
	submitErr     error
	failQuestion  uuid.UUID
	completeErr   error

	submitted   []platform.SubmitRequest
	completions []platform.Completion
	invalidated []string
	reported    []model.SecurityEvent
}

func (f *fakePlatform) GetSession(context.Context, uuid.UUID) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *f.session
	return &copy, nil
}

func (f *fakePlatform) ValidateSession(context.Context, uuid.UUID) (*platform.Validation, error) {
	return f.validation, nil
}

func (f *fakePlatform) GetSessionAccessHash(context.Context, uuid.UUID) (string, error) {
	return "", errors.New("not used")
}

func (f *fakePlatform) GenerateQuestions(context.Context, platform.GenerateParams) ([]model.Question, error) {
	return f.questions, nil
}

func (f *fakePlatform) SubmitResponse(_ context.Context, req platform.SubmitRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	if f.failQuestion != uuid.Nil && req.QuestionID == f.failQuestion {
		return errors.New("backend rejected")
	}
	f.submitted = append(f.submitted, req)
	return nil
}

func (f *fakePlatform) CompleteSession(_ context.Context, _ uuid.UUID, completion platform.Completion) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.completions = append(f.completions, completion)
	final := *f.session
	final.Status = model.SessionStatusCompleted
	return &final, nil
}

func (f *fakePlatform) GetResults(context.Context, uuid.UUID) (json.RawMessage, error) {
	return json.RawMessage(`{"score":87}`), nil
}

func (f *fakePlatform) RecordSecurityEvent(_ context.Context, _ uuid.UUID, event model.SecurityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reported = append(f.reported, event)
	return nil
}

func (f *fakePlatform) InvalidateSession(_ context.Context, _ uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, reason)
	return nil
}

func (f *fakePlatform) TranscribeAudio(context.Context, *model.Clip) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transcript, f.transcribeErr
}

func (f *fakePlatform) submittedRequests() []platform.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]platform.SubmitRequest, len(f.submitted))
	copy(out, f.submitted)
	return out
}

func (f *fakePlatform) completionCalls() []platform.Completion {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]platform.Completion, len(f.completions))
	copy(out, f.completions)
	return out
}

func (f *fakePlatform) invalidations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.invalidated))
	copy(out, f.invalidated)
	return out
}

// fakeNotifier records pushed events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []NotifyEvent
}

func (n *fakeNotifier) Notify(event NotifyEvent, payload interface{}) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *fakeNotifier) saw(event NotifyEvent) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

func newFakePlatform(questionCount int) *fakePlatform {
	questions := make([]model.Question, questionCount)
	for i := range questions {
		questions[i] = model.Question{ID: uuid.New(), Text: "question", TimeLimitSeconds: 600}
	}
	return &fakePlatform{
		session: &model.Session{
			ID:              uuid.New(),
			CandidateID:     7,
			Title:           "Backend Engineer Screen",
			Category:        "backend",
			Difficulty:      "medium",
			DurationMinutes: 60,
			Status:          model.SessionStatusScheduled,
		},
		validation: &platform.Validation{Valid: true},
		questions:  questions,
		transcript: "transcribed answer",
	}
}

func testConfig() Config {
	return Config{
		TickInterval:     5 * time.Millisecond,
		CompletionDelay:  10 * time.Millisecond,
		TerminationDelay: 10 * time.Millisecond,
	}
}

// grantingChannel approves every media acquire against the orchestrator's
// manager.
func grantingChannel(o *Orchestrator) device.ChannelFunc {
	return func(cmd device.Command, payload interface{}) error {
		if cmd == device.CmdAcquireMedia {
			reqID := payload.(map[string]interface{})["request_id"].(string)
			go o.Media().HandleAcquireResult(reqID, "stream-1", "", "")
		}
		return nil
	}
}

func loadedOrchestrator(t *testing.T, api *fakePlatform, cfg Config, cb Callbacks) *Orchestrator {
	t.Helper()
	o := New(api.session.ID, api, nil, nil, cb, cfg, zerolog.Nop())
	result, err := o.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, DispositionProceed, result.Disposition)
	return o
}

func questioningOrchestrator(t *testing.T, api *fakePlatform, cfg Config, cb Callbacks) (*Orchestrator, *fakeNotifier) {
	t.Helper()
	o := loadedOrchestrator(t, api, cfg, cb)
	n := &fakeNotifier{}
	require.NoError(t, o.AttachDevice(grantingChannel(o), n))
	require.NoError(t, o.Begin(context.Background()))
	require.Equal(t, PhaseQuestioning, o.Phase())
	return o, n
}

func TestLoadProceeds(t *testing.T) {
	api := newFakePlatform(3)
	o := loadedOrchestrator(t, api, testConfig(), Callbacks{})

	require.Equal(t, PhaseInstructions, o.Phase())
	snap := o.State()
	require.Equal(t, 3, snap.QuestionCount)
	require.Equal(t, 0, snap.QuestionIndex)
	require.Equal(t, 60*60, snap.SessionRemaining)
}

func TestLoadDispositions(t *testing.T) {
	cases := []struct {
		status model.SessionStatus
		want   Disposition
	}{
		{model.SessionStatusCompleted, DispositionResults},
		{model.SessionStatusCancelled, DispositionExit},
		{model.SessionStatusMissed, DispositionExit},
		{model.SessionStatusTerminated, DispositionExit},
	}
	for _, tc := range cases {
		api := newFakePlatform(1)
		api.session.Status = tc.status

		o := New(api.session.ID, api, nil, nil, Callbacks{}, testConfig(), zerolog.Nop())
		result, err := o.Load(context.Background())
		require.NoError(t, err, "status %s", tc.status)
		require.Equal(t, tc.want, result.Disposition, "status %s", tc.status)
		require.False(t, o.Alive())
	}
}

func TestLoadInvalidValidationRoutesAway(t *testing.T) {
	api := newFakePlatform(1)
	api.validation = &platform.Validation{Valid: false, Reason: "window closed", RedirectTo: "results"}

	o := New(api.session.ID, api, nil, nil, Callbacks{}, testConfig(), zerolog.Nop())
	result, err := o.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, DispositionResults, result.Disposition)
	require.Equal(t, "window closed", result.Message)
}

func TestLoadClampsRemainingToValidation(t *testing.T) {
	api := newFakePlatform(1)
	shorter := 90
	api.validation = &platform.Validation{Valid: true, RemainingTime: &shorter}

	o := loadedOrchestrator(t, api, testConfig(), Callbacks{})
	require.Equal(t, 90, o.State().SessionRemaining)
}

func TestLoadNoQuestionsExits(t *testing.T) {
	api := newFakePlatform(0)

	o := New(api.session.ID, api, nil, nil, Callbacks{}, testConfig(), zerolog.Nop())
	result, err := o.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, DispositionExit, result.Disposition)
}

func TestBeginRequiresInstructionsPhase(t *testing.T) {
	api := newFakePlatform(1)
	o := New(api.session.ID, api, nil, nil, Callbacks{}, testConfig(), zerolog.Nop())

	require.Error(t, o.Begin(context.Background()))
}

func TestBeginStartsQuestioning(t *testing.T) {
	api := newFakePlatform(2)
	o, n := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	require.True(t, n.saw(NotifyQuestion))
	require.Eventually(t, func() bool { return n.saw(NotifyTick) }, time.Second, 5*time.Millisecond)

	snap := o.State()
	require.Equal(t, model.SessionStatusInProgress, snap.Session.Status)
	require.Positive(t, snap.QuestionRemaining)
}

func TestAnswerFlowWithTranscription(t *testing.T) {
	api := newFakePlatform(2)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	require.NoError(t, o.StartRecording(context.Background()))
	o.HandleAudioChunk([]byte("voice bytes"))
	require.NoError(t, o.StopRecording(context.Background()))
	require.NoError(t, o.Next(context.Background()))

	snap := o.State()
	require.Equal(t, 1, snap.QuestionIndex)

	require.NoError(t, o.Previous(context.Background()))
	prev := o.State()
	require.Equal(t, 0, prev.QuestionIndex)
	require.True(t, prev.Response.Answered)
	require.Equal(t, "transcribed answer", prev.Response.AnswerText)
}

func TestNextWithoutRecordingLeavesUnanswered(t *testing.T) {
	api := newFakePlatform(2)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	require.NoError(t, o.Next(context.Background()))

	require.NoError(t, o.Previous(context.Background()))
	snap := o.State()
	require.False(t, snap.Response.Answered)
}

func TestReanswerLockedByDefault(t *testing.T) {
	api := newFakePlatform(2)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	require.NoError(t, o.StartRecording(context.Background()))
	o.HandleAudioChunk([]byte("first take"))
	require.NoError(t, o.StopRecording(context.Background()))
	require.NoError(t, o.Next(context.Background()))
	require.NoError(t, o.Previous(context.Background()))

	require.ErrorIs(t, o.StartRecording(context.Background()), flow.ErrReadOnly)
}

func TestJumpToUnansweredRejected(t *testing.T) {
	api := newFakePlatform(3)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	require.ErrorIs(t, o.JumpTo(context.Background(), 2), flow.ErrNotAnswered)
}

func TestCompleteSubmitsEveryResponse(t *testing.T) {
	api := newFakePlatform(2)
	var completedSession *model.Session
	done := make(chan struct{})

	o, n := questioningOrchestrator(t, api, testConfig(), Callbacks{
		OnComplete: func(final *model.Session) {
			completedSession = final
			close(done)
		},
	})

	require.NoError(t, o.StartRecording(context.Background()))
	o.HandleAudioChunk([]byte("answer one"))
	require.NoError(t, o.StopRecording(context.Background()))
	require.NoError(t, o.Next(context.Background()))

	require.NoError(t, o.StartRecording(context.Background()))
	o.HandleAudioChunk([]byte("answer two"))
	require.NoError(t, o.StopRecording(context.Background()))

	// Next on the last question completes the whole session.
	require.NoError(t, o.Next(context.Background()))

	require.Equal(t, PhaseDone, o.Phase())
	require.False(t, o.Alive())
	require.True(t, n.saw(NotifyCompleted))

	submitted := api.submittedRequests()
	require.Len(t, submitted, 2)
	for _, req := range submitted {
		require.Equal(t, "transcribed answer", req.ResponseText)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("completion callback did not fire")
	}
	require.Equal(t, model.SessionStatusCompleted, completedSession.Status)
	require.NotNil(t, o.State().Results)
}

func TestCompleteContinuesPastSubmitFailures(t *testing.T) {
	api := newFakePlatform(1)
	api.submitErr = errors.New("backend rejected")
	done := make(chan struct{})

	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{
		OnComplete: func(*model.Session) { close(done) },
	})

	require.NoError(t, o.Complete(context.Background()))
	require.Equal(t, PhaseDone, o.Phase())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("completion callback did not fire")
	}
}

func TestCompleteSubmissionFailureMidListContinues(t *testing.T) {
	api := newFakePlatform(3)
	api.failQuestion = api.questions[1].ID

	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})
	require.NoError(t, o.Complete(context.Background()))

	// The rejected question is skipped; its neighbors still go through and
	// the session still closes upstream.
	submitted := api.submittedRequests()
	require.Len(t, submitted, 2)
	require.Equal(t, api.questions[0].ID, submitted[0].QuestionID)
	require.Equal(t, api.questions[2].ID, submitted[1].QuestionID)
	require.Len(t, api.completionCalls(), 1)
}

func TestCompleteFinishesLocallyWhenBackendFails(t *testing.T) {
	api := newFakePlatform(1)
	api.completeErr = errors.New("backend down")

	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})
	require.NoError(t, o.Complete(context.Background()))

	snap := o.State()
	require.Equal(t, PhaseDone, snap.Phase)
	require.Equal(t, model.SessionStatusCompleted, snap.Session.Status)
}

func TestCompleteIdempotent(t *testing.T) {
	api := newFakePlatform(1)
	var completions atomic.Int32
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{
		OnComplete: func(*model.Session) { completions.Add(1) },
	})

	require.NoError(t, o.Complete(context.Background()))
	require.NoError(t, o.Complete(context.Background()))

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), completions.Load())
	require.Len(t, api.submittedRequests(), 1)
}

func TestSecurityTerminationAfterThreeEvents(t *testing.T) {
	api := newFakePlatform(1)
	exited := make(chan struct{})
	o, n := questioningOrchestrator(t, api, testConfig(), Callbacks{
		OnExit: func() { close(exited) },
	})

	o.HandleSecuritySignal(model.EventTabSwitch, "")
	o.HandleSecuritySignal(model.EventWindowBlur, "")
	require.Equal(t, PhaseQuestioning, o.Phase())

	o.HandleSecuritySignal(model.EventCopyAttempt, "")

	require.Equal(t, PhaseTerminated, o.Phase())
	require.False(t, o.Alive())
	require.True(t, n.saw(NotifyTerminated))
	require.Equal(t, 3, o.WarningCount())

	require.Eventually(t, func() bool {
		return len(api.invalidations()) == 1
	}, time.Second, 5*time.Millisecond)

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("exit callback did not fire")
	}
}

func TestDevToolsTerminatesImmediately(t *testing.T) {
	api := newFakePlatform(1)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	o.HandleSecuritySignal(model.EventDevTools, "console opened")

	require.Equal(t, PhaseTerminated, o.Phase())
	require.Eventually(t, func() bool {
		inv := api.invalidations()
		return len(inv) == 1 && inv[0] == "developer tools detected"
	}, time.Second, 5*time.Millisecond)
}

func TestSecuritySignalsOutsideQuestioningDropped(t *testing.T) {
	api := newFakePlatform(1)
	o := loadedOrchestrator(t, api, testConfig(), Callbacks{})

	o.HandleSecuritySignal(model.EventTabSwitch, "")
	require.Equal(t, 0, o.WarningCount())
	require.Equal(t, PhaseInstructions, o.Phase())
}

func TestCompletionSuppressesSecurity(t *testing.T) {
	api := newFakePlatform(1)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	require.NoError(t, o.Complete(context.Background()))

	o.HandleSecuritySignal(model.EventTabSwitch, "")
	require.Equal(t, 0, o.WarningCount())
	require.Empty(t, api.invalidations())
}

func TestQuestionExpiryAutoAdvances(t *testing.T) {
	api := newFakePlatform(2)
	api.questions[0].TimeLimitSeconds = 1

	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	require.Eventually(t, func() bool {
		return o.State().QuestionIndex == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, PhaseQuestioning, o.Phase())
}

func TestSessionExpiryCompletes(t *testing.T) {
	api := newFakePlatform(2)
	shorter := 1
	api.validation = &platform.Validation{Valid: true, RemainingTime: &shorter}

	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	require.Eventually(t, func() bool {
		return o.Phase() == PhaseDone
	}, time.Second, 5*time.Millisecond)

	// Expiry submits every question exactly once, the in-flight one included.
	submitted := api.submittedRequests()
	require.Len(t, submitted, 2)
	require.Equal(t, api.questions[0].ID, submitted[0].QuestionID)
	require.Equal(t, api.questions[1].ID, submitted[1].QuestionID)
	require.Empty(t, submitted[0].ResponseText)
	require.Len(t, api.completionCalls(), 1)
}

func TestStaleQuestionExpiryIgnored(t *testing.T) {
	api := newFakePlatform(3)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	o.mu.Lock()
	replaced := o.questionTimer
	o.mu.Unlock()

	require.NoError(t, o.Next(context.Background()))
	require.Equal(t, 1, o.State().QuestionIndex)

	// An expiry from the first question's timer can land after Next already
	// replaced it. It must not advance the question that is current now.
	o.questionExpired(replaced)
	require.Equal(t, 1, o.State().QuestionIndex)
	require.Equal(t, PhaseQuestioning, o.Phase())
}

func TestStaleSessionExpiryIgnored(t *testing.T) {
	api := newFakePlatform(1)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	stale := timer.New(1, time.Millisecond, nil, nil)
	o.sessionExpired(stale)

	require.Equal(t, PhaseQuestioning, o.Phase())
	require.Empty(t, api.submittedRequests())
}

func TestDetachPausesTimersReattachResumes(t *testing.T) {
	api := newFakePlatform(1)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	o.DetachDevice()
	require.True(t, o.State().Paused)

	frozen := o.State().QuestionRemaining
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, frozen, o.State().QuestionRemaining)

	n := &fakeNotifier{}
	require.NoError(t, o.AttachDevice(grantingChannel(o), n))
	require.False(t, o.State().Paused)
	require.Eventually(t, func() bool {
		return o.State().QuestionRemaining < frozen
	}, time.Second, 5*time.Millisecond)
}

func TestAttachSecondDeviceRejected(t *testing.T) {
	api := newFakePlatform(1)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	err := o.AttachDevice(grantingChannel(o), nil)
	require.ErrorIs(t, err, ErrDeviceAttached)
}

func TestExitTearsDownWithoutSubmitting(t *testing.T) {
	api := newFakePlatform(1)
	exited := false
	o, n := questioningOrchestrator(t, api, testConfig(), Callbacks{
		OnExit: func() { exited = true },
	})

	require.NoError(t, o.StartRecording(context.Background()))
	o.HandleAudioChunk([]byte("discarded"))

	require.NoError(t, o.Exit(context.Background()))
	require.False(t, o.Alive())
	require.True(t, exited)
	require.True(t, n.saw(NotifyExited))
	require.Empty(t, api.submittedRequests())

	require.ErrorIs(t, o.Exit(context.Background()), ErrSessionOver)
}

func TestAcquirePreviewReadinessRace(t *testing.T) {
	api := newFakePlatform(1)
	o := loadedOrchestrator(t, api, testConfig(), Callbacks{})
	require.NoError(t, o.AttachDevice(grantingChannel(o), nil))
	o.Media().ReadyTimeout = 20 * time.Millisecond

	// Timeout path still proceeds.
	stream, viaSignal, err := o.AcquirePreview(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stream)
	require.False(t, viaSignal)
}

func TestSnapshotStripsClipData(t *testing.T) {
	api := newFakePlatform(1)
	o, _ := questioningOrchestrator(t, api, testConfig(), Callbacks{})

	require.NoError(t, o.StartRecording(context.Background()))
	o.HandleAudioChunk([]byte("raw audio"))
	require.NoError(t, o.StopRecording(context.Background()))

	snap := o.State()
	require.Nil(t, snap.Response.Clip)
}
