package reasoning

import (
	"context"
	"testing"

	"github.com/spboyer/syndi/internal/dialogue"
	"github.com/stretchr/testify/require"
)

func TestScriptedRespondIsDeterministic(t *testing.T) {
	s := NewScripted(3)

	first, err := dialogue.Collect(s.Respond(context.Background(), dialogue.Request{Speaker: "Syndi"}))
	require.NoError(t, err)
	require.Equal(t, "Syndi (turn 1): "+scriptedLines[0], first)

	second, err := dialogue.Collect(s.Respond(context.Background(), dialogue.Request{Speaker: "Syndi"}))
	require.NoError(t, err)
	require.Equal(t, "Syndi (turn 2): "+scriptedLines[1], second)

	other, err := dialogue.Collect(s.Respond(context.Background(), dialogue.Request{Speaker: "The Troll"}))
	require.NoError(t, err)
	require.Equal(t, "The Troll (turn 1): "+scriptedLines[0], other)
}

func TestScriptedStopsWhenConsumerStops(t *testing.T) {
	s := NewScripted(0)
	count := 0
	for range s.Respond(context.Background(), dialogue.Request{Speaker: "Syndi"}) {
		count++
		if count == 2 {
			break
		}
	}
	require.Equal(t, 2, count)
}

func TestNewEngine(t *testing.T) {
	_, err := New(Config{Backend: BackendOpenAI})
	require.ErrorContains(t, err, "requires an API key")

	e, err := New(Config{Backend: BackendMock, Score: 2})
	require.NoError(t, err)
	require.IsType(t, &Scripted{}, e)

	e, err = New(Config{Backend: BackendOpenAI, APIKey: "sk"})
	require.NoError(t, err)
	require.IsType(t, &OpenAI{}, e)

	_, err = New(Config{Backend: "llama"})
	require.ErrorContains(t, err, `unknown reasoning backend "llama"`)

	require.True(t, RequiresCredential(BackendOpenAI))
	require.False(t, RequiresCredential(BackendMock))
}
