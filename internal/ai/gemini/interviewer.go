package gemini

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/utils"
)

var (
	interviewerSystemPrompt = mustPrompt("interviewer_system.md")
	questionPrompt          = mustPrompt("question.md")
	followUpPrompt          = mustPrompt("followup.md")
	evaluatePrompt          = mustPrompt("evaluate.md")
	summaryPrompt           = mustPrompt("summary.md")
	reportPrompt            = mustPrompt("report.md")
)

// Interviewer implements ai.Interviewer on top of a Gemini generator.
type Interviewer struct {
	generator    contentGenerator
	maxLogLength int
	logger       *zap.Logger
}

var _ ai.Interviewer = (*Interviewer)(nil)

// NewInterviewer caps logged model replies at maxLogLength runes; zero or less
// uses the default.
func NewInterviewer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Interviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Interviewer{generator: generator, maxLogLength: maxLogLength, logger: logger}
}

func (i *Interviewer) system(role string) string {
	return fill(interviewerSystemPrompt, map[string]string{"ROLE": sanitizeLine(role)})
}

func (i *Interviewer) GenerateQuestion(ctx context.Context, req *ai.QuestionRequest) (string, error) {
	if req == nil {
		return "", errors.New("question request is required")
	}

	values := blockValues(req.Block)
	values["DIALOGUE"] = formatDialogue(req.Dialogue)
	values["DIFFICULTY"] = req.Difficulty
	values["INSTRUCTIONS"] = sanitizeBlock(req.Instructions)

	template := questionPrompt
	if req.FollowUp {
		template = followUpPrompt
		values["FOLLOW_UP_FOCUS"] = orNone(sanitizeLine(req.FollowUpFocus))
	} else {
		values["QUESTION_NUMBER"] = strconv.Itoa(req.QuestionNumber)
		values["MAX_QUESTIONS"] = strconv.Itoa(req.MaxQuestions)
		values["PREVIOUS_SUMMARIES"] = formatList(req.PreviousSummaries)
	}

	raw, err := i.generator.GenerateContent(ctx, i.system(req.Role), fill(template, values))
	if err != nil {
		return "", err
	}

	question := cleanQuestion(raw)
	if question == "" {
		return "", errors.New("gemini returned an empty question")
	}
	return question, nil
}

func (i *Interviewer) EvaluateAnswer(ctx context.Context, req *ai.EvaluationRequest) (*ai.Evaluation, error) {
	if req == nil {
		return nil, errors.New("evaluation request is required")
	}

	values := blockValues(req.Block)
	values["DIALOGUE"] = formatDialogue(req.Dialogue)
	values["DIFFICULTY"] = req.Difficulty
	values["QUESTION"] = req.Question
	values["ANSWER"] = sanitizeText(req.Answer)

	raw, err := i.generator.GenerateContent(ctx, i.system(req.Role), fill(evaluatePrompt, values))
	if err != nil {
		return nil, err
	}

	var eval ai.Evaluation
	if err := decodeJSON(raw, &eval); err != nil {
		i.logger.Debug("unparseable evaluation",
			zap.Int("response_length", len(raw)),
			zap.String("response_preview", utils.Preview(raw, i.maxLogLength)),
		)
		return nil, err
	}
	eval.Score = ai.ClampScore(eval.Score)
	eval.Feedback = strings.TrimSpace(eval.Feedback)
	eval.FollowUpFocus = strings.TrimSpace(eval.FollowUpFocus)

	return &eval, nil
}

func (i *Interviewer) SummarizeBlock(ctx context.Context, req *ai.SummaryRequest) (string, error) {
	if req == nil {
		return "", errors.New("summary request is required")
	}

	values := blockValues(req.Block)
	values["DIALOGUE"] = formatDialogue(req.Dialogue)

	raw, err := i.generator.GenerateContent(ctx, i.system(req.Role), fill(summaryPrompt, values))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (i *Interviewer) FinalReport(ctx context.Context, req *ai.ReportRequest) (*ai.Report, error) {
	if req == nil {
		return nil, errors.New("report request is required")
	}

	names := make([]string, 0, len(req.BlockScores))
	for name := range req.BlockScores {
		names = append(names, name)
	}
	sort.Strings(names)

	scores := make([]string, 0, len(names))
	for _, name := range names {
		scores = append(scores, fmt.Sprintf("- %s: %.2f", name, req.BlockScores[name]))
	}

	raw, err := i.generator.GenerateContent(ctx, i.system(req.Role), fill(reportPrompt, map[string]string{
		"CANDIDATE":       orNone(sanitizeLine(req.Candidate)),
		"OVERALL_SCORE":   strconv.FormatFloat(req.OverallScore, 'f', 2, 64),
		"BLOCK_SCORES":    strings.Join(scores, "\n"),
		"BLOCK_SUMMARIES": formatList(req.BlockSummary),
		"DIALOGUE":        formatDialogue(req.Dialogue),
	}))
	if err != nil {
		return nil, err
	}

	var report ai.Report
	if err := decodeJSON(raw, &report); err != nil {
		return nil, err
	}
	report.Summary = strings.TrimSpace(report.Summary)
	return &report, nil
}

func blockValues(b ai.Block) map[string]string {
	focus := make([]string, 0, len(b.FocusAreas))
	for _, area := range b.FocusAreas {
		focus = append(focus, "- "+area)
	}

	return map[string]string{
		"BLOCK_NUMBER":  strconv.Itoa(b.Number),
		"BLOCK_TOTAL":   strconv.Itoa(b.Total),
		"BLOCK_TITLE":   b.Title,
		"BLOCK_CONTEXT": strings.TrimSpace(b.ContextPrompt),
		"FOCUS_AREAS":   orNone(strings.Join(focus, "\n")),
	}
}

func formatDialogue(exchanges []ai.Exchange) string {
	if len(exchanges) == 0 {
		return "none"
	}

	var b strings.Builder
	for n, ex := range exchanges {
		if n > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q%d: %s\n", n+1, ex.Question)
		if ex.Skipped {
			fmt.Fprintf(&b, "A%d: (skipped)\n", n+1)
			continue
		}
		fmt.Fprintf(&b, "A%d: %s\n", n+1, sanitizeText(ex.Answer))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatList(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, "- "+item)
		}
	}
	return orNone(strings.Join(out, "\n"))
}

// cleanQuestion strips quotes and labels models like to wrap questions in.
func cleanQuestion(raw string) string {
	q := strings.TrimSpace(raw)
	for _, prefix := range []string{"Question:", "**Question:**", "Q:"} {
		q = strings.TrimSpace(strings.TrimPrefix(q, prefix))
	}
	return strings.Trim(q, "\"'` \n")
}
