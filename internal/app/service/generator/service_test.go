package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/internal/platform/llm"
)

type stubCompleter struct {
	msgs  []llm.Message
	reply string
	err   error
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return s.Chat(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
}

func (s *stubCompleter) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	s.msgs = msgs
	return s.reply, s.err
}

func TestChatPrependsSystemPrompt(t *testing.T) {
	stub := &stubCompleter{reply: "Voici un plan."}
	svc := NewService(stub, nil, zap.NewNop().Sugar())

	out, err := svc.Chat(context.Background(), ChatRequest{Messages: []ChatTurn{
		{Role: "user", Content: "Comment lancer ma newsletter ?"},
		{Role: "assistant", Content: "Commence par définir ta cible."},
		{Role: "user", Content: "Et ensuite ?"},
	}})
	require.NoError(t, err)
	require.Equal(t, "Voici un plan.", out)

	require.Len(t, stub.msgs, 4)
	require.Equal(t, "system", stub.msgs[0].Role)
	require.Equal(t, chatSystemPrompt, stub.msgs[0].Content)
	require.Equal(t, "user", stub.msgs[1].Role)
	require.Equal(t, "assistant", stub.msgs[2].Role)
	require.Equal(t, "Et ensuite ?", stub.msgs[3].Content)
}

func TestChatPropagatesGatewayError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("gateway unreachable")}
	svc := NewService(stub, nil, zap.NewNop().Sugar())

	_, err := svc.Chat(context.Background(), ChatRequest{Messages: []ChatTurn{
		{Role: "user", Content: "Bonjour"},
	}})
	require.Error(t, err)
}
