package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/interview"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/metrics"
)

const (
	PromptAnswer = "Answer"
	PromptSkip   = "Skip the question"
	PromptFinish = "Finish the interview now"
	PromptRetry  = "Retry"
	PromptQuit   = "Quit"

	practiceOwner = "practice"
)

var errQuit = errors.New("quit requested")

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Take an interview in the terminal against the configured model",
	Run: func(cmd *cobra.Command, _ []string) {
		practice(cmd)
	},
}

func init() {
	rootCmd.AddCommand(practiceCmd)

	practiceCmd.Flags().StringP("template", "t", "", "interview template name. Asked interactively when unset.")
	practiceCmd.Flags().StringP("role", "r", "", "role the interview is for. Defaults to the template title.")
}

func practice(cmd *cobra.Command) {
	ctx := cmd.Context()
	logger, config := setup()

	if config.AI == nil || !config.AI.Enabled {
		logger.Fatal("practice needs a model", zap.String("hint", "set ai.enabled and ai.gemini.api-key-file"))
	}

	models, err := newAIComponents(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("configuring ai", zap.Error(err))
	}

	templates, err := interview.NewRegistry(config.Interview.TemplatesDir)
	if err != nil {
		logger.Fatal("loading interview templates", zap.Error(err))
	}

	tpl, err := chooseTemplate(templates, cmd.Flag("template").Value.String())
	if err != nil {
		logger.Fatal("choosing a template", zap.Error(err))
	}

	m := metrics.New()
	engine := interview.NewEngine(models.Interviewer, logger, engineOptions(config, m))

	iv := interview.New(practiceOwner, practiceOwner, "", cmd.Flag("role").Value.String(), tpl, time.Now())
	logger.Info("starting practice interview", zap.String("template", tpl.Name), zap.String("role", iv.Title))

	q, err := engine.Start(ctx, iv)
	if err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}

	for q != nil {
		next, err := ask(ctx, engine, iv, q, logger)
		if err != nil {
			if errors.Is(err, errQuit) {
				logger.Info("exiting", zap.String("reason", "quit requested"), zap.Int("questions", len(iv.Questions)))
				return
			}
			logger.Fatal("interview failed", zap.Error(err))
		}
		q = next
	}

	printResult(iv)

	snap := m.Snapshot()
	logger.Debug("practice finished",
		zap.Int64("questions_asked", snap.QuestionsAsked),
		zap.Int64("ai_calls_total", snap.AICallsTotal),
		zap.Int64("ai_calls_successful", snap.AICallsSuccessful),
	)
}

func chooseTemplate(templates *interview.Registry, name string) (*interview.Template, error) {
	if name = strings.TrimSpace(name); name != "" {
		return templates.Get(name)
	}

	list := templates.List()
	items := make([]string, 0, len(list))
	for _, tpl := range list {
		items = append(items, fmt.Sprintf("%s: %s", tpl.Name, tpl.Title))
	}

	selector := promptui.Select{
		Label: "Choose an interview template",
		Items: items,
	}
	idx, _, err := selector.Run()
	if err != nil {
		return nil, err
	}
	return list[idx], nil
}

// ask shows q and runs the chosen action. It returns the next question, or
// nil once the interview is completed.
func ask(ctx context.Context, engine *interview.Engine, iv *interview.Interview, q *interview.Question, logger *zap.Logger) (*interview.Question, error) {
	section := iv.Title
	if block := iv.CurrentTemplateBlock(); block != nil {
		section = block.Title
	}
	fmt.Printf("\n[%s, %s] %s\n\n", section, q.Difficulty, q.Text)

	action := promptui.Select{
		Label: "What next?",
		Items: []string{PromptAnswer, PromptSkip, PromptFinish, PromptQuit},
	}
	_, choice, err := action.Run()
	if err != nil {
		return nil, err
	}

	var step *interview.Step
	switch choice {
	case PromptAnswer:
		answer, err := (&promptui.Prompt{
			Label: "Your answer",
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return interview.ErrEmptyAnswer
				}
				return nil
			},
		}).Run()
		if err != nil {
			return nil, err
		}
		step, err = engine.Answer(ctx, iv, q.ID, answer)
		if err != nil && !errors.Is(err, interview.ErrAdvance) {
			return nil, err
		}
		if step != nil && step.Evaluation != nil {
			fmt.Printf("\nScore %.1f/10. %s\n", step.Evaluation.Score, step.Evaluation.Feedback)
		}
		if err != nil {
			return resume(ctx, engine, iv, logger, err)
		}
	case PromptSkip:
		step, err = engine.Skip(ctx, iv, q.ID)
		if err != nil && !errors.Is(err, interview.ErrAdvance) {
			return nil, err
		}
		if err != nil {
			return resume(ctx, engine, iv, logger, err)
		}
	case PromptFinish:
		if _, err := engine.Complete(ctx, iv); err != nil {
			return nil, err
		}
		return nil, nil
	case PromptQuit:
		return nil, errQuit
	default:
		return nil, fmt.Errorf("invalid action: %s", choice)
	}

	for _, b := range step.CompletedBlocks {
		fmt.Printf("\nBlock %q finished with %.1f/10.\n", b.Name, b.Score)
	}
	if step.Completed {
		return nil, nil
	}
	return step.Next, nil
}

// resume retries producing the next question after the model failed to.
func resume(ctx context.Context, engine *interview.Engine, iv *interview.Interview, logger *zap.Logger, cause error) (*interview.Question, error) {
	for {
		logger.Warn("the interview could not advance", zap.Error(cause))

		retry := promptui.Select{
			Label: "The model did not respond",
			Items: []string{PromptRetry, PromptQuit},
		}
		_, choice, err := retry.Run()
		if err != nil {
			return nil, err
		}
		if choice == PromptQuit {
			return nil, errQuit
		}

		step, err := engine.Next(ctx, iv)
		if err == nil {
			if step.Completed {
				return nil, nil
			}
			return step.Next, nil
		}
		cause = err
	}
}

func printResult(iv *interview.Interview) {
	if iv.Result == nil {
		return
	}

	// do not bother error since the result is plain data
	pretty, _ := json.MarshalIndent(iv.Result, "", "  ")
	fmt.Printf("\nInterview %s: %s\n%s\n", iv.Status, iv.Result.Recommendation, pretty)
}
