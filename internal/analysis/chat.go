package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
)

// geminiChat wraps one genai chat session. The session owns the turn
// history; a failed exchange leaves it usable for the next message.
type geminiChat struct {
	session *genai.ChatSession
}

// Send submits a user message and streams the reply through onChunk,
// returning the accumulated answer once the stream completes.
func (c *geminiChat) Send(ctx context.Context, message string, onChunk func(string)) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	iter := c.session.SendMessageStream(ctx, genai.Text(message))

	var answer strings.Builder
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("streaming chat response: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				text, ok := part.(genai.Text)
				if !ok {
					continue
				}
				answer.WriteString(string(text))
				if onChunk != nil {
					onChunk(string(text))
				}
			}
		}
	}

	if answer.Len() == 0 {
		return "", fmt.Errorf("empty chat response")
	}
	return answer.String(), nil
}
