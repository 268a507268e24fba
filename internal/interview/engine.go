package interview

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/logger"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/metrics"
)

const defaultMaxAnswerRunes = 4000

type Options struct {
	// MaxAnswerRunes caps the accepted answer length. Defaults to 4000.
	MaxAnswerRunes int
	// Instructions are organisation-wide hints passed to question generation.
	Instructions string
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Engine runs interviews against an AI interviewer. It keeps no state of its
// own; callers load an Interview, call the engine and persist the result.
type Engine struct {
	interviewer  ai.Interviewer
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
	maxAnswer    int
	instructions string
}

// Step reports what happened after an answer.
type Step struct {
	Question        *Question        `json:"question,omitempty"`
	Evaluation      *ai.Evaluation   `json:"evaluation,omitempty"`
	Next            *Question        `json:"next,omitempty"`
	CompletedBlocks []*BlockProgress `json:"completed_blocks,omitempty"`
	Completed       bool             `json:"completed"`
	Result          *Result          `json:"result,omitempty"`
}

func NewEngine(interviewer ai.Interviewer, log *zap.Logger, opts Options) *Engine {
	if opts.MaxAnswerRunes <= 0 {
		opts.MaxAnswerRunes = defaultMaxAnswerRunes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Engine{
		interviewer:  interviewer,
		logger:       logger.Attach(log),
		metrics:      opts.Metrics,
		now:          opts.Now,
		maxAnswer:    opts.MaxAnswerRunes,
		instructions: strings.TrimSpace(opts.Instructions),
	}
}

func (e *Engine) log(iv *Interview) *zap.Logger {
	return e.logger.With(logger.Scope{Org: iv.OrgID, Job: iv.JobID, Candidate: iv.CandidateID, Interview: iv.ID}.Fields()...)
}

// Start begins a scheduled interview and returns its first question. The
// interview is left untouched when the question cannot be produced.
func (e *Engine) Start(ctx context.Context, iv *Interview) (*Question, error) {
	if iv.Status != StatusScheduled {
		return nil, iv.transitionErr(StatusInProgress)
	}

	q, err := e.compose(ctx, iv, KindBase)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if err := iv.Begin(now); err != nil {
		return nil, err
	}
	q.AskedAt = now
	if err := iv.Ask(q); err != nil {
		return nil, err
	}

	e.metrics.IncrementInterviewsStarted()
	e.metrics.IncrementQuestionsAsked()
	e.log(iv).Info("interview started",
		zap.String("template", iv.Template.Name),
		zap.Int("blocks", len(iv.Template.Blocks)),
	)

	return q, nil
}

// Answer grades the answer to the pending question and advances the session.
// When grading fails the interview is unchanged. When the answer was recorded
// but the next question could not be produced, the returned error wraps
// ErrAdvance together with the partial step; Next resumes the session.
func (e *Engine) Answer(ctx context.Context, iv *Interview, questionID, answer string) (*Step, error) {
	q, err := e.pending(iv, questionID)
	if err != nil {
		return nil, err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}
	if n := utf8.RuneCountInString(answer); n > e.maxAnswer {
		return nil, fmt.Errorf("%w: %d characters, limit is %d", ErrAnswerTooLong, n, e.maxAnswer)
	}

	block := iv.Template.Block(q.BlockID)
	eval, err := e.interviewer.EvaluateAnswer(ctx, &ai.EvaluationRequest{
		Role:       iv.Title,
		Block:      e.aiBlock(iv, block),
		Question:   q.Text,
		Answer:     answer,
		Difficulty: q.Difficulty.String(),
		Dialogue:   dialogue(iv.BlockQuestions(block.ID)),
	})
	e.metrics.IncrementAICall(err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: evaluate answer: %w", ErrModel, err)
	}
	if eval == nil {
		return nil, fmt.Errorf("%w: evaluate answer: empty evaluation", ErrModel)
	}
	eval.Score = ai.ClampScore(eval.Score)

	if err := iv.Record(q.ID, &Response{Answer: answer, Evaluation: eval, AnsweredAt: e.now()}); err != nil {
		return nil, err
	}
	e.metrics.IncrementAnswersEvaluated()

	e.log(iv).Debug("answer evaluated",
		zap.String("question_id", q.ID),
		zap.Float64("score", eval.Score),
		zap.Bool("follow_up_requested", eval.FollowUp),
		zap.Stringer("difficulty", iv.Difficulty),
	)

	step := &Step{Question: q, Evaluation: eval}
	if err := e.advance(ctx, iv, step); err != nil {
		return step, fmt.Errorf("%w: %w", ErrAdvance, err)
	}
	return step, nil
}

// Skip records the pending question as skipped without consulting the model.
func (e *Engine) Skip(ctx context.Context, iv *Interview, questionID string) (*Step, error) {
	q, err := e.pending(iv, questionID)
	if err != nil {
		return nil, err
	}

	eval := &ai.Evaluation{Score: 0, Feedback: "question skipped"}
	if err := iv.Record(q.ID, &Response{Skipped: true, Evaluation: eval, AnsweredAt: e.now()}); err != nil {
		return nil, err
	}
	e.metrics.IncrementAnswersSkipped()

	step := &Step{Question: q, Evaluation: eval}
	if err := e.advance(ctx, iv, step); err != nil {
		return step, fmt.Errorf("%w: %w", ErrAdvance, err)
	}
	return step, nil
}

// Next resumes a running interview that has no pending question, e.g. after
// an earlier ErrAdvance. With a pending question it just returns it.
func (e *Engine) Next(ctx context.Context, iv *Interview) (*Step, error) {
	if iv.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: interview is %s", ErrInvalidTransition, iv.Status)
	}

	if pending := iv.Pending(); pending != nil {
		return &Step{Next: pending}, nil
	}

	step := &Step{}
	if err := e.advance(ctx, iv, step); err != nil {
		return step, err
	}
	return step, nil
}

// Complete ends a running interview early: the pending question is dropped,
// the current block is summarised and the result is computed from what was
// answered so far.
func (e *Engine) Complete(ctx context.Context, iv *Interview) (*Result, error) {
	if iv.Status != StatusInProgress {
		return nil, iv.transitionErr(StatusCompleted)
	}

	if dropped := iv.DropPending(); dropped != nil {
		e.log(iv).Debug("dropped unanswered question", zap.String("question_id", dropped.ID))
	}

	if progress := iv.Progress(); progress != nil && progress.BaseAsked+progress.FollowUpsAsked > 0 {
		if _, err := e.closeBlock(ctx, iv); err != nil {
			return nil, err
		}
	}

	return e.finish(ctx, iv)
}

// Cancel stops the interview without a result.
func (e *Engine) Cancel(iv *Interview) error {
	if err := iv.Cancel(e.now()); err != nil {
		return err
	}
	e.metrics.IncrementInterviewsCancelled()
	e.log(iv).Info("interview cancelled")
	return nil
}

func (e *Engine) pending(iv *Interview, questionID string) (*Question, error) {
	if iv.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: interview is %s", ErrInvalidTransition, iv.Status)
	}

	q := iv.Pending()
	if q == nil || q.ID != questionID {
		return nil, fmt.Errorf("%w: %s", ErrQuestionMismatch, questionID)
	}
	return q, nil
}

func (e *Engine) advance(ctx context.Context, iv *Interview, step *Step) error {
	for {
		switch move := iv.NextMove(); move {
		case MoveFollowUp, MoveBase:
			kind := KindBase
			if move == MoveFollowUp {
				kind = KindFollowUp
			}

			q, err := e.compose(ctx, iv, kind)
			if err != nil {
				return err
			}
			q.AskedAt = e.now()
			if err := iv.Ask(q); err != nil {
				return err
			}
			e.metrics.IncrementQuestionsAsked()
			step.Next = q
			return nil

		case MoveCloseBlock:
			progress, err := e.closeBlock(ctx, iv)
			if err != nil {
				return err
			}
			step.CompletedBlocks = append(step.CompletedBlocks, progress)

		case MoveFinish:
			result, err := e.finish(ctx, iv)
			if err != nil {
				return err
			}
			step.Completed = true
			step.Result = result
			return nil

		default:
			return nil
		}
	}
}

// compose produces the next question of the current block without touching
// the interview. Seed questions of the block are used before asking the model.
func (e *Engine) compose(ctx context.Context, iv *Interview, kind Kind) (*Question, error) {
	block := iv.CurrentTemplateBlock()
	progress := iv.Progress()
	if block == nil || progress == nil {
		return nil, fmt.Errorf("%w: no block left to ask from", ErrInvalidTransition)
	}

	q := &Question{
		ID:         uuid.NewString(),
		BlockID:    block.ID,
		Kind:       kind,
		Difficulty: iv.Difficulty,
	}

	if kind == KindBase && progress.BaseAsked < len(block.Questions) {
		q.Text = strings.TrimSpace(block.Questions[progress.BaseAsked])
		if q.Text != "" {
			return q, nil
		}
	}

	req := &ai.QuestionRequest{
		Role:              iv.Title,
		Block:             e.aiBlock(iv, block),
		FollowUp:          kind == KindFollowUp,
		Difficulty:        iv.Difficulty.String(),
		QuestionNumber:    progress.BaseAsked + progress.FollowUpsAsked + 1,
		MaxQuestions:      iv.Template.Config.MaxQuestions(),
		Dialogue:          dialogue(iv.BlockQuestions(block.ID)),
		PreviousSummaries: iv.Summaries(),
		Instructions:      e.instructions,
	}

	if kind == KindFollowUp {
		if parent := iv.lastAnswered(block.ID); parent != nil {
			q.ParentID = parent.ID
			if parent.Response.Evaluation != nil {
				req.FollowUpFocus = parent.Response.Evaluation.FollowUpFocus
			}
		}
	}

	text, err := e.interviewer.GenerateQuestion(ctx, req)
	e.metrics.IncrementAICall(err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generate %s question: %w", ErrModel, kind, err)
	}

	q.Text = strings.TrimSpace(text)
	if q.Text == "" {
		return nil, fmt.Errorf("%w: generate %s question: empty question", ErrModel, kind)
	}

	return q, nil
}

// closeBlock summarises and closes the current block. A failed summary is
// logged and leaves the summary empty rather than blocking the interview.
func (e *Engine) closeBlock(ctx context.Context, iv *Interview) (*BlockProgress, error) {
	block := iv.CurrentTemplateBlock()
	if block == nil {
		return nil, fmt.Errorf("%w: all blocks are closed", ErrInvalidTransition)
	}

	summary := ""
	if exchanges := dialogue(iv.BlockQuestions(block.ID)); len(exchanges) > 0 {
		text, err := e.interviewer.SummarizeBlock(ctx, &ai.SummaryRequest{
			Role:     iv.Title,
			Block:    e.aiBlock(iv, block),
			Dialogue: exchanges,
		})
		e.metrics.IncrementAICall(err == nil)
		if err != nil {
			e.log(iv).Warn("block summary failed", zap.Int("block_id", block.ID), zap.Error(err))
		} else {
			summary = strings.TrimSpace(text)
		}
	}

	progress, err := iv.AdvanceBlock(summary, e.now())
	if err != nil {
		return nil, err
	}

	e.log(iv).Info("block completed",
		zap.Int("block_id", progress.BlockID),
		zap.String("block", progress.Name),
		zap.Float64("score", progress.Score),
		zap.Int("answered", progress.Answered),
	)
	return progress, nil
}

// finish computes the result and asks the model for the narrative report. A
// failed report is logged; the deterministic scores are kept.
func (e *Engine) finish(ctx context.Context, iv *Interview) (*Result, error) {
	result := Compute(iv)

	if result.QuestionsAnswered > 0 {
		scores := make(map[string]float64, len(result.Blocks))
		for _, b := range result.Blocks {
			scores[b.Name] = b.Score
		}

		var all []ai.Exchange
		for _, block := range iv.Template.Blocks {
			all = append(all, dialogue(iv.BlockQuestions(block.ID))...)
		}

		report, err := e.interviewer.FinalReport(ctx, &ai.ReportRequest{
			Role:         iv.Title,
			BlockScores:  scores,
			OverallScore: result.OverallScore,
			BlockSummary: iv.Summaries(),
			Dialogue:     all,
		})
		e.metrics.IncrementAICall(err == nil)
		switch {
		case err != nil:
			e.log(iv).Warn("final report failed", zap.Error(err))
		case report != nil:
			result.Summary = strings.TrimSpace(report.Summary)
			result.Strengths = report.Strengths
			result.Weaknesses = report.Weaknesses
		}
	}

	if err := iv.Finish(result, e.now()); err != nil {
		return nil, err
	}

	e.metrics.IncrementInterviewsCompleted()
	e.log(iv).Info("interview completed",
		zap.Float64("overall_score", result.OverallScore),
		zap.String("recommendation", string(result.Recommendation)),
		zap.Int("answered", result.QuestionsAnswered),
		zap.Int("skipped", result.QuestionsSkipped),
	)
	return result, nil
}

func (e *Engine) aiBlock(iv *Interview, block *Block) ai.Block {
	return ai.Block{
		Title:         block.Title,
		ContextPrompt: block.ContextPrompt,
		FocusAreas:    block.FocusAreas,
		Number:        block.ID,
		Total:         len(iv.Template.Blocks),
	}
}

// dialogue converts answered questions into model exchanges.
func dialogue(questions []*Question) []ai.Exchange {
	out := make([]ai.Exchange, 0, len(questions))
	for _, q := range questions {
		if q.Pending() {
			continue
		}
		out = append(out, ai.Exchange{
			Question: q.Text,
			Answer:   q.Response.Answer,
			Skipped:  q.Response.Skipped,
			Score:    q.Score(),
		})
	}
	return out
}
