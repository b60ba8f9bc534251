// Package classifier decides whether a chat message asks for zmanim and,
// if so, which ones and for which day.
package classifier

import (
	"context"
	"log/slog"

	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/zmanim"
)

// Matcher recognises a zmanim query in free text.
type Matcher interface {
	Match(ctx context.Context, text string) (zmanim.Query, bool)
}

// Chain consults each matcher in order until one matches.
type Chain []Matcher

// Match implements Matcher.
func (c Chain) Match(ctx context.Context, text string) (zmanim.Query, bool) {
	for _, m := range c {
		if q, ok := m.Match(ctx, text); ok {
			return q, true
		}
	}
	return zmanim.Query{}, false
}

// New builds the keyword matcher, followed by the language-model matcher
// when enabled and a client is available.
func New(llmEnabled bool, client gemini.Client, logger *slog.Logger) Matcher {
	chain := Chain{Keywords{}}
	if llmEnabled && client != nil {
		chain = append(chain, NewLLM(client, logger))
	}
	return chain
}
