package classifier

import (
	"context"
	"log/slog"

	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/zmanim"
)

type llmQuery struct {
	Type   string `json:"type"`
	Zman   string `json:"zman"`
	Target string `json:"target"`
}

// LLM is the semantic slow path. Any failure is reported as no match.
type LLM struct {
	client gemini.Client
	log    *slog.Logger
}

// NewLLM creates the language-model matcher.
func NewLLM(client gemini.Client, logger *slog.Logger) *LLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{client: client, log: logger.With("component", "llm_classifier")}
}

// Match implements Matcher.
func (m *LLM) Match(ctx context.Context, text string) (zmanim.Query, bool) {
	var out llmQuery
	err := gemini.GenerateJSON(ctx, m.client, gemini.Request{
		SystemInstruction: gemini.ZmanimQueryInstruction,
		Prompt:            text,
		Schema:            gemini.ZmanimQuerySchema,
	}, &out)
	if err != nil {
		m.log.WarnContext(ctx, "Zmanim classification failed, treating as no match", "error", err)
		return zmanim.Query{}, false
	}

	q := zmanim.Query{Type: zmanim.QueryType(out.Type), Target: zmanim.Today}
	if out.Target == string(zmanim.Tomorrow) {
		q.Target = zmanim.Tomorrow
	}

	switch q.Type {
	case zmanim.QueryAll:
		return q, true
	case zmanim.QuerySpecific:
		q.Zman = zmanim.Zman(out.Zman)
		if !q.Zman.Valid() {
			m.log.WarnContext(ctx, "Model returned unknown zman", "zman", out.Zman)
			return zmanim.Query{}, false
		}
		return q, true
	default:
		return zmanim.Query{}, false
	}
}
