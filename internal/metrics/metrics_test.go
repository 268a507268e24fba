package metrics

import (
	"sync"
	"testing"
)

func TestMetricsCountersAreConcurrencySafe(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementQuestionsAsked()
			m.IncrementAICall(i%2 == 0)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.QuestionsAsked != 50 {
		t.Fatalf("expected 50 questions, got %d", snap.QuestionsAsked)
	}
	if snap.AICallsTotal != 50 || snap.AICallsSuccessful != 25 {
		t.Fatalf("unexpected ai call counters: %+v", snap)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.IncrementInterviewsStarted()
	m.IncrementAICall(true)

	if snap := m.Snapshot(); snap.InterviewsStarted != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}
