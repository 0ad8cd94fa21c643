// Package flow owns the question index and the per-question response records
// for one interview: which question is current, how answers are recorded, and
// the transition rules for next/previous/jump.
package flow

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
)

// Sentinel errors.
var (
	ErrNoQuestions  = errors.New("no questions loaded")
	ErrReadOnly     = errors.New("question already answered and re-answer is disabled")
	ErrNotAnswered  = errors.New("can only jump to an already-answered question")
	ErrAtFirst      = errors.New("already at the first question")
	ErrInvalidIndex = errors.New("question index out of range")
)

// Controller is the question-flow state machine. currentIndex stays within
// [0, N); exactly one response record is current at any time.
type Controller struct {
	mu            sync.Mutex
	questions     []model.Question
	responses     []model.Response
	index         int
	allowReanswer bool
}

// NewController creates a controller over an immutable question set. One
// empty response record is created per question up front; records are
// overwritten on revisit, never deleted.
func NewController(questions []model.Question, allowReanswer bool) (*Controller, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	responses := make([]model.Response, len(questions))
	for i := range questions {
		responses[i] = model.Response{QuestionID: questions[i].ID}
	}
	c := &Controller{
		questions:     questions,
		responses:     responses,
		allowReanswer: allowReanswer,
	}
	c.responses[0].StartedAt = time.Now()
	return c, nil
}

// Index returns the current question index.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Count returns the number of questions.
func (c *Controller) Count() int {
	return len(c.questions)
}

// Current returns the current question and its response record (copies).
func (c *Controller) Current() (model.Question, model.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questions[c.index], c.responses[c.index]
}

// RecordAnswer writes answer text and an optional clip into the current
// response, marks it answered, and accumulates time spent since the question
// became current. Re-answering an already-answered question is rejected
// unless the re-answer policy is enabled.
func (c *Controller) RecordAnswer(text string, clip *model.Clip) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp := &c.responses[c.index]
	if resp.Answered && !c.allowReanswer {
		return ErrReadOnly
	}
	resp.AnswerText = text
	resp.Clip = clip
	resp.Answered = true
	resp.TimeSpent = time.Since(resp.StartedAt).Milliseconds()
	return nil
}

// Advance moves to the next question. On the last index it does not move and
// reports done=true: advancing past the end means session completion, never a
// no-op. The question-start timestamp of the newly current question restarts.
func (c *Controller) Advance() (done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index >= len(c.questions)-1 {
		return true
	}
	c.index++
	c.responses[c.index].StartedAt = time.Now()
	return false
}

// Previous moves back one question for review. The stored answer and flags
// are preserved; only the start timestamp restarts so revisits never
// double-count time.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == 0 {
		return ErrAtFirst
	}
	c.index--
	c.responses[c.index].StartedAt = time.Now()
	return nil
}

// JumpTo moves directly to an already-answered question for review.
func (c *Controller) JumpTo(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.questions) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	if i != c.index && !c.responses[i].Answered {
		return ErrNotAnswered
	}
	c.index = i
	c.responses[i].StartedAt = time.Now()
	return nil
}

// Responses returns a copy of all response records in question order.
func (c *Controller) Responses() []model.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Response, len(c.responses))
	copy(out, c.responses)
	return out
}

// AnsweredCount returns how many questions have been answered so far.
func (c *Controller) AnsweredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for i := range c.responses {
		if c.responses[i].Answered {
			n++
		}
	}
	return n
}
