// Package session contains the top-level interview state machine. One
// orchestrator runs per live session; it owns both countdown timers, the
// security monitor, the recorder pipeline and the media manager, and it is
// the only writer of session phase. All phase mutation happens under one
// mutex, and every callback arriving from a timer or the network re-checks
// liveness before touching state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/audit"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/device"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/flow"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/media"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/platform"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/recorder"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/security"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/timer"
)

// Sentinel errors surfaced to handlers.
var (
	ErrWrongPhase     = errors.New("operation not allowed in current phase")
	ErrSessionOver    = errors.New("session is no longer live")
	ErrDeviceAttached = errors.New("a device is already attached to this session")
)

const (
	// completionDelay lets in-flight client navigation settle before the
	// completion callback fires.
	completionDelay = 2 * time.Second
	// terminationDelay gives the UI time to show the termination notice
	// before the exit callback fires.
	terminationDelay = 3 * time.Second
)

// Disposition routes a candidate whose session cannot be conducted.
type Disposition string

const (
	DispositionProceed Disposition = "proceed"
	DispositionResults Disposition = "results"
	DispositionExit    Disposition = "exit"
)

// LoadResult is the outcome of the loading phase.
type LoadResult struct {
	Disposition Disposition `json:"disposition"`
	Message     string      `json:"message,omitempty"`
}

// Config tunes orchestrator timing. Zero values select production defaults;
// tests shrink the intervals.
type Config struct {
	TickInterval     time.Duration
	CompletionDelay  time.Duration
	TerminationDelay time.Duration
	AllowReanswer    bool
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = timer.DefaultInterval
	}
	if c.CompletionDelay <= 0 {
		c.CompletionDelay = completionDelay
	}
	if c.TerminationDelay <= 0 {
		c.TerminationDelay = terminationDelay
	}
	return c
}

// Callbacks are the host hooks, each invoked at most once per session
// lifetime.
type Callbacks struct {
	OnComplete func(final *model.Session)
	OnExit     func()
}

// Snapshot is the full observable state, served to reconnecting clients.
type Snapshot struct {
	Phase             Phase                `json:"phase"`
	Session           *model.Session       `json:"session"`
	QuestionIndex     int                  `json:"question_index"`
	QuestionCount     int                  `json:"question_count"`
	Question          *model.Question      `json:"question,omitempty"`
	Response          *model.Response      `json:"response,omitempty"`
	SessionRemaining  int                  `json:"session_remaining_seconds"`
	QuestionRemaining int                  `json:"question_remaining_seconds"`
	WarningCount      int                  `json:"warning_count"`
	Recording         model.RecordingState `json:"recording"`
	Paused            bool                 `json:"paused"`
	Results           json.RawMessage      `json:"results,omitempty"`
}

// Orchestrator conducts one interview session end to end.
type Orchestrator struct {
	sessionID uuid.UUID
	api       platform.API
	cfg       Config
	callbacks Callbacks
	log       zerolog.Logger

	media   *media.Manager
	rec     *recorder.Pipeline
	monitor *security.Monitor
	auditor audit.Auditor

	// mu serializes every state-changing operation. The interview is a
	// single logical event loop; holding the lock across backend calls is
	// deliberate.
	mu        sync.Mutex
	alive     bool
	phase     Phase
	sess      *model.Session
	flow      *flow.Controller
	remaining int // session seconds budget fixed at load
	startedAt time.Time
	completed bool
	paused    bool
	attached  bool
	ch        device.Channel
	results   json.RawMessage

	sessionTimer  *timer.Countdown
	questionTimer *timer.Countdown

	nmu      sync.Mutex
	notifier Notifier

	completeOnce sync.Once
	exitOnce     sync.Once
}

// New creates an orchestrator in the loading phase. reporter receives
// security events fire-and-forget; pass nil to disable reporting. auditor
// records submission attempts; pass nil to disable auditing.
func New(sessionID uuid.UUID, api platform.API, reporter security.Reporter, auditor audit.Auditor, callbacks Callbacks, cfg Config, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		sessionID: sessionID,
		api:       api,
		cfg:       cfg.withDefaults(),
		callbacks: callbacks,
		log: log.With().
			Str("component", "orchestrator").
			Str("session_id", sessionID.String()).
			Logger(),
		alive:    true,
		phase:    PhaseLoading,
		notifier: noopNotifier{},
	}
	if auditor == nil {
		auditor = audit.NoopAuditor{}
	}
	o.auditor = auditor
	o.media = media.NewManager(nil, o.log)
	o.rec = recorder.NewPipeline(o.media, nil, api, o.log)
	o.rec.TickInterval = o.cfg.TickInterval
	o.monitor = security.NewMonitor(reporter, o.invalidate, o.log)
	return o
}

// SessionID returns the conducted session's ID.
func (o *Orchestrator) SessionID() uuid.UUID { return o.sessionID }

// Media exposes the media manager for signal routing.
func (o *Orchestrator) Media() *media.Manager { return o.media }

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Alive reports whether the session still accepts mutation.
func (o *Orchestrator) Alive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.alive
}

func (o *Orchestrator) notify(event NotifyEvent, payload interface{}) {
	o.nmu.Lock()
	n := o.notifier
	o.nmu.Unlock()
	n.Notify(event, payload)
}

// transition applies one FSM event under the caller-held lock.
func (o *Orchestrator) transitionLocked(event Event) error {
	next, err := Transition(o.phase, event)
	if err != nil {
		return err
	}
	o.log.Info().Str("from", string(o.phase)).Str("to", string(next)).Msg("Phase transition")
	o.phase = next
	return nil
}

// ─── Loading ────────────────────────────────────────────────────────

// Load fetches the session, branches on backend status, validates
// eligibility, and loads the question set. Returns a non-proceed disposition
// when the candidate should be routed away instead of interviewed.
func (o *Orchestrator) Load(ctx context.Context) (*LoadResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != PhaseLoading {
		return nil, ErrWrongPhase
	}

	sess, err := o.api.GetSession(ctx, o.sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	o.sess = sess

	switch sess.Status {
	case model.SessionStatusCompleted:
		o.alive = false
		return &LoadResult{Disposition: DispositionResults, Message: "interview already completed"}, nil
	case model.SessionStatusCancelled:
		o.alive = false
		return &LoadResult{Disposition: DispositionExit, Message: "interview was cancelled"}, nil
	case model.SessionStatusMissed:
		o.alive = false
		return &LoadResult{Disposition: DispositionExit, Message: "interview window was missed"}, nil
	case model.SessionStatusTerminated:
		o.alive = false
		return &LoadResult{Disposition: DispositionExit, Message: "interview was terminated"}, nil
	}

	validation, err := o.api.ValidateSession(ctx, o.sessionID)
	if err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}
	if !validation.Valid {
		o.alive = false
		disposition := DispositionExit
		if validation.RedirectTo == string(DispositionResults) {
			disposition = DispositionResults
		}
		msg := validation.Reason
		if msg == "" {
			msg = "interview is not eligible to start"
		}
		return &LoadResult{Disposition: disposition, Message: msg}, nil
	}

	o.remaining = sess.DurationMinutes * 60
	if validation.RemainingTime != nil && *validation.RemainingTime < o.remaining {
		o.remaining = *validation.RemainingTime
	}

	questions, err := o.api.GenerateQuestions(ctx, platform.GenerateParams{
		SessionID:  o.sessionID,
		Category:   sess.Category,
		Difficulty: sess.Difficulty,
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	ctrl, err := flow.NewController(questions, o.cfg.AllowReanswer)
	if err != nil {
		o.alive = false
		return &LoadResult{Disposition: DispositionExit, Message: "no questions available for this interview"}, nil
	}
	o.flow = ctrl

	if err := o.transitionLocked(EventLoaded); err != nil {
		return nil, err
	}

	o.log.Info().Int("questions", ctrl.Count()).Int("budget_s", o.remaining).Msg("Session loaded")
	return &LoadResult{Disposition: DispositionProceed}, nil
}

// ─── Device attachment ──────────────────────────────────────────────

// AttachDevice binds a connected browser peer. Only one device may be
// attached at a time. Re-attaching mid-questioning resumes both timers.
func (o *Orchestrator) AttachDevice(ch device.Channel, n Notifier) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.alive {
		return ErrSessionOver
	}
	if o.attached {
		return ErrDeviceAttached
	}
	o.attached = true
	o.ch = ch
	o.media.SetChannel(ch)
	o.rec.SetChannel(ch)

	o.nmu.Lock()
	if n != nil {
		o.notifier = n
	} else {
		o.notifier = noopNotifier{}
	}
	o.nmu.Unlock()

	if o.phase == PhaseQuestioning && o.paused {
		o.paused = false
		if o.sessionTimer != nil {
			o.sessionTimer.Resume()
		}
		if o.questionTimer != nil {
			o.questionTimer.Resume()
		}
		o.log.Info().Msg("Device re-attached, timers resumed")
	}
	return nil
}

// DetachDevice unbinds the peer (connection drop). Mid-questioning this
// pauses both timers so a refresh does not burn the candidate's clock.
func (o *Orchestrator) DetachDevice() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.attached {
		return
	}
	o.attached = false
	o.ch = nil
	o.media.SetChannel(nil)
	o.rec.SetChannel(nil)

	o.nmu.Lock()
	o.notifier = noopNotifier{}
	o.nmu.Unlock()

	if o.phase == PhaseQuestioning && o.alive {
		o.paused = true
		if o.sessionTimer != nil {
			o.sessionTimer.Pause()
		}
		if o.questionTimer != nil {
			o.questionTimer.Pause()
		}
		o.log.Info().Msg("Device detached, timers paused")
	}
}

// ─── Camera ─────────────────────────────────────────────────────────

// AcquirePreview requests the camera+microphone preview stream and waits out
// the readiness race. Serves both the initial setup and the manual
// "retry camera" affordance; the orchestrator itself never retries.
func (o *Orchestrator) AcquirePreview(ctx context.Context) (*media.Stream, bool, error) {
	o.mu.Lock()
	if !o.alive {
		o.mu.Unlock()
		return nil, false, ErrSessionOver
	}
	if o.phase != PhaseInstructions && o.phase != PhaseQuestioning {
		o.mu.Unlock()
		return nil, false, ErrWrongPhase
	}
	o.mu.Unlock()

	// The acquire blocks on the peer's grant; deliberately outside the
	// session lock so timers keep flowing.
	stream, err := o.media.Acquire(ctx, media.PurposePreview, media.DefaultConstraints)
	if err != nil {
		return nil, false, err
	}
	viaSignal := o.media.AwaitReady(ctx)
	return stream, viaSignal, nil
}

// ToggleCamera flips camera tracks without releasing the stream.
func (o *Orchestrator) ToggleCamera(enabled bool) error {
	return o.media.SetEnabled(media.PurposePreview, enabled)
}

// ─── Instructions → questioning ─────────────────────────────────────

// Begin acknowledges the instructions and enters questioning: fullscreen is
// requested best effort, both timers start, and the first question is pushed.
func (o *Orchestrator) Begin(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.alive {
		return ErrSessionOver
	}
	if err := o.transitionLocked(EventBegin); err != nil {
		return err
	}

	// Best effort; a denied fullscreen never blocks the interview.
	if err := o.sendDeviceLocked(device.CmdRequestFullscreen, nil); err != nil {
		o.log.Debug().Err(err).Msg("Fullscreen request not delivered")
	}

	o.sess.Status = model.SessionStatusInProgress
	o.startedAt = time.Now()

	var st *timer.Countdown
	st = timer.New(o.remaining, o.cfg.TickInterval,
		func(rem int) { o.notify(NotifyTick, TickPayload{Timer: "session", Remaining: rem}) },
		func() { o.sessionExpired(st) },
	)
	o.sessionTimer = st
	o.sessionTimer.Start()
	o.startQuestionTimerLocked()

	o.notify(NotifyPhase, map[string]string{"phase": string(PhaseQuestioning)})
	o.notifyQuestionLocked()
	return nil
}

// startQuestionTimerLocked (re)seeds the question timer from the current
// question's limit. Caller holds o.mu.
func (o *Orchestrator) startQuestionTimerLocked() {
	if o.questionTimer != nil {
		o.questionTimer.Stop()
	}
	q, _ := o.flow.Current()
	var qt *timer.Countdown
	qt = timer.New(q.TimeLimit(), o.cfg.TickInterval,
		func(rem int) { o.notify(NotifyTick, TickPayload{Timer: "question", Remaining: rem}) },
		func() { o.questionExpired(qt) },
	)
	o.questionTimer = qt
	if o.paused {
		o.questionTimer.Pause()
	}
	o.questionTimer.Start()
}

func (o *Orchestrator) notifyQuestionLocked() {
	q, resp := o.flow.Current()
	o.notify(NotifyQuestion, QuestionPayload{
		Index:      o.flow.Index(),
		Count:      o.flow.Count(),
		QuestionID: q.ID.String(),
		Text:       q.Text,
		TimeLimit:  q.TimeLimit(),
		Answered:   resp.Answered,
		AnswerText: resp.AnswerText,
	})
}

// sessionExpired fires on the session timer goroutine. Expiry completes the
// whole session, not just the current question. An expiry racing Stop at the
// final tick can arrive after the timer was replaced, so t must still be the
// installed session timer or the callback is dropped.
func (o *Orchestrator) sessionExpired(t *timer.Countdown) {
	o.mu.Lock()
	live := t == o.sessionTimer
	o.mu.Unlock()
	if !live {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := o.Complete(ctx); err != nil && !errors.Is(err, ErrWrongPhase) {
		o.log.Error().Err(err).Msg("Completion after session expiry failed")
	}
}

// questionExpired fires on the question timer goroutine and behaves exactly
// like the candidate pressing next. t must still be the installed question
// timer; a stale expiry from a timer that was already replaced would
// otherwise cut short whichever question is current now.
func (o *Orchestrator) questionExpired(t *timer.Countdown) {
	o.mu.Lock()
	live := t == o.questionTimer
	o.mu.Unlock()
	if !live {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := o.Next(ctx); err != nil && !errors.Is(err, ErrWrongPhase) && !errors.Is(err, ErrSessionOver) {
		o.log.Error().Err(err).Msg("Auto-advance after question expiry failed")
	}
}

// ─── Recording ──────────────────────────────────────────────────────

// StartRecording begins audio capture for the current question.
func (o *Orchestrator) StartRecording(ctx context.Context) error {
	o.mu.Lock()
	if !o.alive || o.phase != PhaseQuestioning {
		o.mu.Unlock()
		return ErrWrongPhase
	}
	_, resp := o.flow.Current()
	if resp.Answered && !o.cfg.AllowReanswer {
		o.mu.Unlock()
		return flow.ErrReadOnly
	}
	o.mu.Unlock()

	// Microphone grant blocks on the peer; outside the session lock.
	return o.rec.Start(ctx)
}

// StopRecording finalizes the current question's clip.
func (o *Orchestrator) StopRecording(ctx context.Context) error {
	_, err := o.rec.Stop(ctx)
	return err
}

// HandleAudioChunk routes one binary chunk from the peer into the pipeline.
func (o *Orchestrator) HandleAudioChunk(data []byte) {
	o.rec.HandleChunk(data)
}

// ─── Question flow ──────────────────────────────────────────────────

// finalizeAnswerLocked folds the recorder state into the current response:
// a finalized clip is transcribed (with deterministic fallback), and a
// recorded-but-clipless edge case gets the fallback text directly. Caller
// holds o.mu.
func (o *Orchestrator) finalizeAnswerLocked(ctx context.Context) {
	if o.rec.State().Recording {
		if _, err := o.rec.Stop(ctx); err != nil {
			o.log.Warn().Err(err).Msg("Stopping in-flight recording failed")
		}
	}

	clip := o.rec.Clip()
	switch {
	case clip != nil:
		text := o.rec.Transcribe(ctx, clip)
		if err := o.flow.RecordAnswer(text, clip); err != nil && !errors.Is(err, flow.ErrReadOnly) {
			o.log.Warn().Err(err).Msg("Recording answer failed")
		}
	case o.rec.HasRecording():
		// Recorder claims a take happened but produced no clip.
		if err := o.flow.RecordAnswer(recorder.FallbackText(time.Now()), nil); err != nil && !errors.Is(err, flow.ErrReadOnly) {
			o.log.Warn().Err(err).Msg("Recording fallback answer failed")
		}
	}
}

// Next finalizes the current answer and advances. On the last question it is
// a synonym for completion.
func (o *Orchestrator) Next(ctx context.Context) error {
	o.mu.Lock()
	if !o.alive {
		o.mu.Unlock()
		return ErrSessionOver
	}
	if o.phase != PhaseQuestioning {
		o.mu.Unlock()
		return ErrWrongPhase
	}

	o.finalizeAnswerLocked(ctx)

	if o.flow.Advance() {
		o.mu.Unlock()
		return o.Complete(ctx)
	}

	o.rec.Reset()
	o.startQuestionTimerLocked()
	o.notifyQuestionLocked()
	o.mu.Unlock()
	return nil
}

// Previous steps back for review. Transient recording state clears and the
// question timer reseeds, same as any index change.
func (o *Orchestrator) Previous(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.alive || o.phase != PhaseQuestioning {
		return ErrWrongPhase
	}
	if err := o.flow.Previous(); err != nil {
		return err
	}
	o.rec.Reset()
	o.startQuestionTimerLocked()
	o.notifyQuestionLocked()
	return nil
}

// JumpTo moves directly to an already-answered question.
func (o *Orchestrator) JumpTo(ctx context.Context, index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.alive || o.phase != PhaseQuestioning {
		return ErrWrongPhase
	}
	if err := o.flow.JumpTo(index); err != nil {
		return err
	}
	o.rec.Reset()
	o.startQuestionTimerLocked()
	o.notifyQuestionLocked()
	return nil
}

// ─── Completion ─────────────────────────────────────────────────────

// Complete drives questioning → completing → done: finalize the in-flight
// answer, submit every response independently, close the session upstream,
// fetch results, and schedule the one-shot completion callback. Idempotent;
// a second trigger is ignored.
func (o *Orchestrator) Complete(ctx context.Context) error {
	o.mu.Lock()
	if o.completed {
		o.mu.Unlock()
		return nil
	}
	if !o.alive || o.phase != PhaseQuestioning {
		o.mu.Unlock()
		return ErrWrongPhase
	}
	o.completed = true
	if err := o.transitionLocked(EventComplete); err != nil {
		o.mu.Unlock()
		return err
	}

	o.monitor.Suppress()
	o.stopTimersLocked()
	o.notify(NotifyPhase, map[string]string{"phase": string(PhaseCompleting)})

	o.finalizeAnswerLocked(ctx)
	o.rec.Reset()

	// Submit each response independently: one failure never blocks the rest.
	responses := o.flow.Responses()
	submitted := 0
	for i := range responses {
		resp := &responses[i]
		err := o.api.SubmitResponse(ctx, platform.SubmitRequest{
			SessionID:    o.sessionID,
			QuestionID:   resp.QuestionID,
			ResponseText: resp.AnswerText,
			TimeTaken:    resp.TimeSpent,
		})
		o.auditor.AuditResponse(o.sessionID, *resp, err == nil)
		if err != nil {
			o.log.Error().Err(err).Str("question_id", resp.QuestionID.String()).Msg("Response submission failed, continuing")
			continue
		}
		submitted++
	}
	o.log.Info().Int("submitted", submitted).Int("total", len(responses)).Msg("Responses submitted")

	elapsed := int(time.Since(o.startedAt).Round(time.Minute) / time.Minute)
	if elapsed < 1 {
		elapsed = 1
	}
	final, err := o.api.CompleteSession(ctx, o.sessionID, platform.Completion{
		ActualDurationMinutes: elapsed,
		SecurityEvents:        o.monitor.Events(),
	})
	if err != nil {
		// The backend call failed but the local session still terminates
		// cleanly with whatever was collected.
		o.log.Error().Err(err).Msg("completeSession failed, finishing locally")
		final = o.sess
		final.Status = model.SessionStatusCompleted
	}
	o.sess = final

	if results, err := o.api.GetResults(ctx, o.sessionID); err != nil {
		o.log.Warn().Err(err).Msg("Results fetch failed")
	} else {
		o.results = results
	}

	if err := o.transitionLocked(EventCompleted); err != nil {
		o.log.Error().Err(err).Msg("Transition to done failed")
	}
	o.alive = false
	results := o.results
	o.mu.Unlock()

	o.notify(NotifyCompleted, CompletedPayload{Results: results})

	// Delay the callback so in-flight client navigation settles.
	time.AfterFunc(o.cfg.CompletionDelay, func() {
		o.completeOnce.Do(func() {
			o.teardownDevices()
			if o.callbacks.OnComplete != nil {
				o.callbacks.OnComplete(final)
			}
		})
	})
	return nil
}

// ─── Termination and exit ───────────────────────────────────────────

// invalidate is the security monitor's escalation target. Terminal and
// idempotent: state freezes, one best-effort invalidate call goes upstream,
// and the exit callback fires after a settle delay.
func (o *Orchestrator) invalidate(reason string) {
	o.mu.Lock()
	if !o.alive {
		o.mu.Unlock()
		return
	}
	if err := o.transitionLocked(EventTerminate); err != nil {
		o.mu.Unlock()
		return
	}
	o.alive = false
	o.completed = true // block any late completion trigger
	o.sess.Status = model.SessionStatusTerminated
	o.stopTimersLocked()
	o.rec.Reset()
	o.monitor.Suppress()
	o.mu.Unlock()

	o.log.Error().Str("reason", reason).Msg("Session terminated")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.api.InvalidateSession(ctx, o.sessionID, reason); err != nil {
			o.log.Error().Err(err).Msg("Backend invalidate failed")
		}
	}()

	o.notify(NotifyTerminated, TerminatedPayload{Reason: reason})

	time.AfterFunc(o.cfg.TerminationDelay, func() {
		o.exitOnce.Do(func() {
			o.teardownDevices()
			if o.callbacks.OnExit != nil {
				o.callbacks.OnExit()
			}
		})
	})
}

// Exit abandons the interview on explicit, confirmed user action: the same
// teardown as completion but with no submission.
func (o *Orchestrator) Exit(ctx context.Context) error {
	o.mu.Lock()
	if !o.alive {
		o.mu.Unlock()
		return ErrSessionOver
	}
	o.alive = false
	o.completed = true
	o.stopTimersLocked()
	o.rec.Reset()
	o.monitor.Suppress()
	o.mu.Unlock()

	o.log.Info().Msg("Session exited by candidate")
	o.notify(NotifyExited, nil)

	o.exitOnce.Do(func() {
		o.teardownDevices()
		if o.callbacks.OnExit != nil {
			o.callbacks.OnExit()
		}
	})
	return nil
}

func (o *Orchestrator) stopTimersLocked() {
	if o.sessionTimer != nil {
		o.sessionTimer.Stop()
	}
	if o.questionTimer != nil {
		o.questionTimer.Stop()
	}
}

// sendDeviceLocked pushes one command to the attached peer. Caller holds o.mu.
func (o *Orchestrator) sendDeviceLocked(cmd device.Command, payload interface{}) error {
	if o.ch == nil {
		return device.ErrDetached
	}
	return o.ch.Send(cmd, payload)
}

func (o *Orchestrator) teardownDevices() {
	o.media.ReleaseAll()
	o.mu.Lock()
	if err := o.sendDeviceLocked(device.CmdExitFullscreen, nil); err != nil {
		o.log.Debug().Err(err).Msg("Fullscreen exit not delivered")
	}
	o.mu.Unlock()
}

// ─── Security ───────────────────────────────────────────────────────

// HandleSecuritySignal processes one forwarded browser integrity signal.
// Signals outside questioning are dropped; the monitor handles escalation.
func (o *Orchestrator) HandleSecuritySignal(eventType model.SecurityEventType, detail string) {
	o.mu.Lock()
	active := o.alive && o.phase == PhaseQuestioning
	o.mu.Unlock()
	if !active {
		return
	}

	count, recorded := o.monitor.Observe(eventType, detail)
	if recorded {
		o.notify(NotifyWarning, WarningPayload{Type: string(eventType), WarningCount: count})
	}
}

// WarningCount exposes the monitor tally.
func (o *Orchestrator) WarningCount() int {
	return o.monitor.WarningCount()
}

// ─── State ──────────────────────────────────────────────────────────

// State snapshots the orchestrator for the state endpoint.
func (o *Orchestrator) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Phase:        o.phase,
		Session:      o.sess,
		WarningCount: o.monitor.WarningCount(),
		Recording:    o.rec.State(),
		Paused:       o.paused,
		Results:      o.results,
	}
	if o.flow != nil {
		q, resp := o.flow.Current()
		resp.Clip = nil // never ship raw audio in a snapshot
		snap.QuestionIndex = o.flow.Index()
		snap.QuestionCount = o.flow.Count()
		snap.Question = &q
		snap.Response = &resp
	}
	if o.sessionTimer != nil {
		snap.SessionRemaining = o.sessionTimer.Remaining()
	} else {
		snap.SessionRemaining = o.remaining
	}
	if o.questionTimer != nil {
		snap.QuestionRemaining = o.questionTimer.Remaining()
	}
	return snap
}
