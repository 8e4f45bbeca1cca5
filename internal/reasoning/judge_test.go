package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spboyer/syndi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	answer string
	err    error

	model, system, user string
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, model, system, user string) (string, error) {
	f.model, f.system, f.user = model, system, user
	return f.answer, f.err
}

func transcriptOf(n int) models.Transcript {
	var t models.Transcript
	for i := range n {
		t.Append(models.TranscriptEntry{Speaker: fmt.Sprintf("s%d", i), Text: fmt.Sprintf("line %d", i)})
	}
	return t
}

func TestJudgeEvaluate(t *testing.T) {
	c := &fakeCompleter{answer: `{"score":3,"level":"soft","evidence":["you make a fair point"],"reasoning":"Used the thesis."}`}
	eval := NewJudge(c, JudgeOptions{}).Evaluate(context.Background(), transcriptOf(3))

	assert.Equal(t, &models.Evaluation{
		Score:     3,
		Level:     "soft",
		Evidence:  []string{"you make a fair point"},
		Reasoning: "Used the thesis.",
	}, eval)
	assert.Equal(t, DefaultJudgeModel, c.model)
	assert.Contains(t, c.system, "conversation between Syndi")
	assert.Equal(t, "Evaluate this conversation:\n\n[s0]: line 0\n[s1]: line 1\n[s2]: line 2", c.user)
}

func TestJudgeUsesWindow(t *testing.T) {
	c := &fakeCompleter{answer: `{"score":0,"level":"none"}`}
	eval := NewJudge(c, JudgeOptions{}).Evaluate(context.Background(), transcriptOf(25))

	assert.Equal(t, 0, eval.Score)
	assert.Equal(t, []string{}, eval.Evidence)
	assert.NotContains(t, c.user, "[s4]:")
	assert.Contains(t, c.user, "[s5]: line 5")
	assert.Equal(t, 20, strings.Count(c.user, "[s"))
}

func TestJudgeFailuresBecomeSentinel(t *testing.T) {
	tests := map[string]*fakeCompleter{
		"service error":  {err: errors.New("upstream 500")},
		"not json":       {answer: "I think a 4"},
		"out of range":   {answer: `{"score":7,"level":"full"}`},
		"missing score":  {answer: `{"level":"soft"}`},
		"missing level":  {answer: `{"score":2}`},
		"fractional":     {answer: `{"score":2.5,"level":"interest"}`},
		"wrong evidence": {answer: `{"score":2,"level":"interest","evidence":"quote"}`},
	}

	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			eval := NewJudge(c, JudgeOptions{}).Evaluate(context.Background(), transcriptOf(2))
			assert.Equal(t, models.ScoreError, eval.Score)
			assert.Equal(t, models.LevelError, eval.Level)
			assert.Empty(t, eval.Evidence)
			assert.NotEmpty(t, eval.Reasoning)
		})
	}
}

func TestJudgeAcceptsFreeFormAnswers(t *testing.T) {
	tests := map[string]struct {
		answer string
		score  int
		level  string
	}{
		"descriptive label": {`{"score":4,"level":"strong conversion","reasoning":"Repeated the thesis."}`, 4, "strong conversion"},
		"capitalised label": {`{"score":3,"level":"Soft"}`, 3, "Soft"},
		"whole float score": {`{"score":4.0,"level":"strong"}`, 4, "strong"},
		"zero float score":  {`{"score":0.0,"level":"none"}`, 0, "none"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			eval := NewJudge(&fakeCompleter{answer: tc.answer}, JudgeOptions{}).Evaluate(context.Background(), transcriptOf(2))
			assert.Equal(t, tc.score, eval.Score)
			assert.Equal(t, tc.level, eval.Level)
		})
	}
}

func TestJudgeWithScripted(t *testing.T) {
	eval := NewJudge(NewScripted(4), JudgeOptions{}).Evaluate(context.Background(), transcriptOf(7))
	require.Equal(t, 4, eval.Score)
	require.Equal(t, "strong", eval.Level)

	eval = NewJudge(NewScripted(9), JudgeOptions{}).Evaluate(context.Background(), transcriptOf(7))
	require.Equal(t, models.ScoreError, eval.Score)
}
