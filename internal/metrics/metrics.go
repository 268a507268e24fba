// Package metrics keeps in-process counters of hiring activity.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu   sync.RWMutex
	snap Snapshot
}

type Snapshot struct {
	InterviewsStarted   int64     `json:"interviews_started"`
	InterviewsCompleted int64     `json:"interviews_completed"`
	InterviewsCancelled int64     `json:"interviews_cancelled"`
	QuestionsAsked      int64     `json:"questions_asked"`
	AnswersEvaluated    int64     `json:"answers_evaluated"`
	AnswersSkipped      int64     `json:"answers_skipped"`
	AICallsTotal        int64     `json:"ai_calls_total"`
	AICallsSuccessful   int64     `json:"ai_calls_successful"`
	ScreeningsRun       int64     `json:"screenings_run"`
	AnalysesRun         int64     `json:"analyses_run"`
	LastUpdateTime      time.Time `json:"last_update_time"`
}

func New() *Metrics {
	return &Metrics{snap: Snapshot{LastUpdateTime: time.Now()}}
}

// update is a no-op on a nil receiver so optional metrics need no guards.
func (m *Metrics) update(fn func(s *Snapshot)) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.snap)
	m.snap.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementInterviewsStarted() {
	m.update(func(s *Snapshot) { s.InterviewsStarted++ })
}

func (m *Metrics) IncrementInterviewsCompleted() {
	m.update(func(s *Snapshot) { s.InterviewsCompleted++ })
}

func (m *Metrics) IncrementInterviewsCancelled() {
	m.update(func(s *Snapshot) { s.InterviewsCancelled++ })
}

func (m *Metrics) IncrementQuestionsAsked() {
	m.update(func(s *Snapshot) { s.QuestionsAsked++ })
}

func (m *Metrics) IncrementAnswersEvaluated() {
	m.update(func(s *Snapshot) { s.AnswersEvaluated++ })
}

func (m *Metrics) IncrementAnswersSkipped() {
	m.update(func(s *Snapshot) { s.AnswersSkipped++ })
}

func (m *Metrics) IncrementAICall(success bool) {
	m.update(func(s *Snapshot) {
		s.AICallsTotal++
		if success {
			s.AICallsSuccessful++
		}
	})
}

func (m *Metrics) IncrementScreenings() {
	m.update(func(s *Snapshot) { s.ScreeningsRun++ })
}

func (m *Metrics) IncrementAnalyses() {
	m.update(func(s *Snapshot) { s.AnalysesRun++ })
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}
