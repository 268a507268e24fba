package interview

import "math"

type Recommendation string

const (
	StrongHire Recommendation = "strong_hire"
	Hire       Recommendation = "hire"
	Maybe      Recommendation = "maybe"
	NoHire     Recommendation = "no_hire"
)

const strongHireScore = 8.5

type BlockScoreEntry struct {
	BlockID  int     `json:"block_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Answered int     `json:"answered"`
}

type Result struct {
	OverallScore      float64           `json:"overall_score"`
	Recommendation    Recommendation    `json:"recommendation"`
	Blocks            []BlockScoreEntry `json:"blocks"`
	QuestionsAsked    int               `json:"questions_asked"`
	QuestionsAnswered int               `json:"questions_answered"` // excludes skipped
	QuestionsSkipped  int               `json:"questions_skipped"`
	Summary           string            `json:"summary,omitempty"`
	Strengths         []string          `json:"strengths,omitempty"`
	Weaknesses        []string          `json:"weaknesses,omitempty"`
}

// BlockScore is the difficulty-weighted mean score of the answered questions
// and the number of answered questions. Skipped questions count as 0.
func BlockScore(questions []*Question) (float64, int) {
	var sum, weights float64
	answered := 0

	for _, q := range questions {
		if q.Pending() {
			continue
		}
		w := float64(q.Difficulty)
		if w <= 0 {
			w = float64(Medium)
		}
		sum += q.Score() * w
		weights += w
		answered++
	}

	if answered == 0 {
		return 0, 0
	}
	return round2(sum / weights), answered
}

// Compute derives the deterministic part of the result from the answered
// questions. Blocks without answers do not contribute.
func Compute(iv *Interview) *Result {
	res := &Result{}

	var sum, weights float64
	for _, block := range iv.Template.Blocks {
		questions := iv.BlockQuestions(block.ID)
		for _, q := range questions {
			res.QuestionsAsked++
			if q.Response != nil && q.Response.Skipped {
				res.QuestionsSkipped++
			}
		}

		score, answered := BlockScore(questions)
		if answered == 0 {
			continue
		}

		res.QuestionsAnswered += answered
		res.Blocks = append(res.Blocks, BlockScoreEntry{
			BlockID:  block.ID,
			Name:     block.Name,
			Score:    score,
			Answered: answered,
		})

		sum += score * block.Weight
		weights += block.Weight
	}

	if weights > 0 {
		res.OverallScore = round2(sum / weights)
	}

	responded := res.QuestionsAnswered
	res.QuestionsAnswered -= res.QuestionsSkipped

	res.Recommendation = Recommend(res.OverallScore, iv.Template.Config.PassScore, responded)
	return res
}

// Recommend maps an overall score to a hiring recommendation. The rules are
// checked in order, so strong_hire does not depend on the pass score.
func Recommend(overall, passScore float64, answered int) Recommendation {
	if answered == 0 {
		return NoHire
	}

	switch {
	case overall >= strongHireScore:
		return StrongHire
	case overall >= passScore:
		return Hire
	case overall >= passScore-2:
		return Maybe
	default:
		return NoHire
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
