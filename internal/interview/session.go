package interview

import (
	"fmt"
	"time"
)

// Move is the next action the session needs.
type Move int

const (
	MoveNone Move = iota
	MoveFollowUp
	MoveBase
	MoveCloseBlock
	MoveFinish
)

func (m Move) String() string {
	switch m {
	case MoveFollowUp:
		return "follow_up"
	case MoveBase:
		return "base"
	case MoveCloseBlock:
		return "close_block"
	case MoveFinish:
		return "finish"
	default:
		return "none"
	}
}

func (iv *Interview) transitionErr(to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, iv.Status, to)
}

// Begin moves a scheduled interview into progress.
func (iv *Interview) Begin(now time.Time) error {
	if iv.Status != StatusScheduled {
		return iv.transitionErr(StatusInProgress)
	}

	iv.Status = StatusInProgress
	iv.StartedAt = &now
	iv.UpdatedAt = now
	return nil
}

// Cancel stops a scheduled or running interview.
func (iv *Interview) Cancel(now time.Time) error {
	if iv.Status.Terminal() {
		return iv.transitionErr(StatusCancelled)
	}

	iv.Status = StatusCancelled
	iv.CompletedAt = &now
	iv.UpdatedAt = now
	return nil
}

// Finish closes a running interview with its result.
func (iv *Interview) Finish(result *Result, now time.Time) error {
	if iv.Status != StatusInProgress {
		return iv.transitionErr(StatusCompleted)
	}
	if iv.Pending() != nil {
		return fmt.Errorf("%w: a question is still awaiting an answer", ErrInvalidTransition)
	}

	iv.Status = StatusCompleted
	iv.Result = result
	iv.CompletedAt = &now
	iv.UpdatedAt = now
	return nil
}

// Pending returns the question awaiting an answer, if any.
func (iv *Interview) Pending() *Question {
	if n := len(iv.Questions); n > 0 && iv.Questions[n-1].Pending() {
		return iv.Questions[n-1]
	}
	return nil
}

// CurrentTemplateBlock returns the block being interviewed or nil once all
// blocks are closed.
func (iv *Interview) CurrentTemplateBlock() *Block {
	if iv.CurrentBlock >= len(iv.Template.Blocks) {
		return nil
	}
	return &iv.Template.Blocks[iv.CurrentBlock]
}

// Progress returns the progress of the current block or nil once all blocks are closed.
func (iv *Interview) Progress() *BlockProgress {
	if iv.CurrentBlock >= len(iv.Blocks) {
		return nil
	}
	return iv.Blocks[iv.CurrentBlock]
}

func (iv *Interview) progressFor(blockID int) *BlockProgress {
	for _, p := range iv.Blocks {
		if p.BlockID == blockID {
			return p
		}
	}
	return nil
}

// BlockQuestions returns the questions asked within a block in order.
func (iv *Interview) BlockQuestions(blockID int) []*Question {
	var out []*Question
	for _, q := range iv.Questions {
		if q.BlockID == blockID {
			out = append(out, q)
		}
	}
	return out
}

// Question finds a question by id.
func (iv *Interview) Question(id string) *Question {
	for _, q := range iv.Questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (iv *Interview) lastAnswered(blockID int) *Question {
	for i := len(iv.Questions) - 1; i >= 0; i-- {
		q := iv.Questions[i]
		if q.BlockID == blockID && !q.Pending() {
			return q
		}
	}
	return nil
}

// Ask appends a question to the current block.
func (iv *Interview) Ask(q *Question) error {
	if iv.Status != StatusInProgress {
		return fmt.Errorf("%w: cannot ask questions while %s", ErrInvalidTransition, iv.Status)
	}
	if iv.Pending() != nil {
		return fmt.Errorf("%w: previous question is still pending", ErrInvalidTransition)
	}

	block := iv.CurrentTemplateBlock()
	if block == nil || q.BlockID != block.ID {
		return fmt.Errorf("%w: question does not belong to the current block", ErrInvalidTransition)
	}

	progress := iv.Progress()
	switch q.Kind {
	case KindBase:
		progress.BaseAsked++
	case KindFollowUp:
		progress.FollowUpsAsked++
	default:
		return fmt.Errorf("unknown question kind %q", q.Kind)
	}

	iv.Questions = append(iv.Questions, q)
	iv.UpdatedAt = q.AskedAt
	return nil
}

// Record attaches the response to the pending question and adapts difficulty.
func (iv *Interview) Record(questionID string, resp *Response) error {
	if iv.Status != StatusInProgress {
		return fmt.Errorf("%w: cannot answer while %s", ErrInvalidTransition, iv.Status)
	}

	pending := iv.Pending()
	if pending == nil || pending.ID != questionID {
		return fmt.Errorf("%w: %s", ErrQuestionMismatch, questionID)
	}

	pending.Response = resp
	if p := iv.progressFor(pending.BlockID); p != nil {
		p.Answered++
	}

	iv.Difficulty = adapt(iv.Difficulty, pending.Score())
	iv.UpdatedAt = resp.AnsweredAt
	return nil
}

func adapt(d Difficulty, score float64) Difficulty {
	switch {
	case score >= 8 && d < Hard:
		return d + 1
	case score <= 4 && d > Easy:
		return d - 1
	default:
		return d
	}
}

// NextMove decides what the session needs after the latest answer.
func (iv *Interview) NextMove() Move {
	if iv.Status != StatusInProgress || iv.Pending() != nil {
		return MoveNone
	}

	block := iv.CurrentTemplateBlock()
	if block == nil {
		return MoveFinish
	}

	cfg := iv.Template.Config
	progress := iv.Progress()

	if last := iv.lastAnswered(block.ID); last != nil && progress.FollowUpsAsked < cfg.MaxFollowUps && iv.needsFollowUp(last) {
		return MoveFollowUp
	}

	if progress.BaseAsked < cfg.QuestionsPerBlock {
		return MoveBase
	}

	return MoveCloseBlock
}

func (iv *Interview) needsFollowUp(q *Question) bool {
	if q.Response == nil || q.Response.Skipped || q.Response.Evaluation == nil {
		return false
	}
	return q.Response.Evaluation.FollowUp || q.Response.Evaluation.Score < iv.Template.Config.FollowUpThreshold
}

// AdvanceBlock closes the current block with its summary and moves on.
func (iv *Interview) AdvanceBlock(summary string, now time.Time) (*BlockProgress, error) {
	if iv.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: cannot close blocks while %s", ErrInvalidTransition, iv.Status)
	}
	if iv.Pending() != nil {
		return nil, fmt.Errorf("%w: a question is still awaiting an answer", ErrInvalidTransition)
	}

	progress := iv.Progress()
	if progress == nil {
		return nil, fmt.Errorf("%w: all blocks are closed", ErrInvalidTransition)
	}

	progress.Score, progress.Answered = BlockScore(iv.BlockQuestions(progress.BlockID))
	progress.Summary = summary
	progress.Completed = true

	iv.CurrentBlock++
	iv.UpdatedAt = now
	return progress, nil
}

// DropPending removes an unanswered question, e.g. when an interviewer ends
// the session early.
func (iv *Interview) DropPending() *Question {
	pending := iv.Pending()
	if pending == nil {
		return nil
	}

	if p := iv.progressFor(pending.BlockID); p != nil {
		switch pending.Kind {
		case KindBase:
			p.BaseAsked--
		case KindFollowUp:
			p.FollowUpsAsked--
		}
	}

	iv.Questions = iv.Questions[:len(iv.Questions)-1]
	return pending
}

// Summaries returns the summaries of closed blocks in order.
func (iv *Interview) Summaries() []string {
	var out []string
	for _, p := range iv.Blocks {
		if p.Completed && p.Summary != "" {
			out = append(out, p.Summary)
		}
	}
	return out
}
