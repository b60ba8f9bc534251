package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/knowledge"
)

// NewKnowledgeHandler answers a question from the knowledge base of the
// chat's group and the groups sharing its community.
func NewKnowledgeHandler(deps HandlerDeps) HandlerFunc {
	return knowledgeHandler{deps}.Handle
}

type knowledgeHandler struct {
	deps HandlerDeps
}

func (h knowledgeHandler) Handle(ctx context.Context, msg *database.Message) error {
	deps := h.deps
	log := deps.Logger.With("handler", "knowledge")
	cfg := deps.Config.Bot

	history, err := deps.Store.GetRecentMessages(ctx, msg.ChatJID, cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to load chat history: %w", err)
	}

	aiCtx, cancel := context.WithTimeout(ctx, aiProcessingTimeout)
	defer cancel()

	query, err := deps.GeminiClient.Generate(aiCtx, gemini.Request{
		SystemInstruction: gemini.RephraseInstruction,
		Prompt:            fmt.Sprintf("%s: %s\n\n# History:\n%s", senderTag(msg), msg.Content(), knowledge.FormatHistory(history)),
	})
	if err != nil {
		return fmt.Errorf("failed to rephrase question: %w", err)
	}
	query = strings.TrimSpace(query)
	log.DebugContext(ctx, "Rephrased question", "query", query)

	vectors, err := deps.GeminiClient.Embed(aiCtx, []string{query})
	if err != nil {
		return fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("failed to embed question: got %d vectors", len(vectors))
	}

	groups, err := h.searchGroups(ctx, msg)
	if err != nil {
		return err
	}
	topics, err := deps.Store.GetKBTopics(ctx, groups)
	if err != nil {
		return fmt.Errorf("failed to load topics: %w", err)
	}
	results := knowledge.Search(topics, vectors[0], cfg.TopicsLimit)
	log.DebugContext(ctx, "Knowledge base searched", "groups", len(groups), "topics", len(topics), "results", len(results))

	answer, err := deps.GeminiClient.Generate(aiCtx, gemini.Request{
		SystemInstruction: gemini.AnswerInstruction,
		Prompt:            fmt.Sprintf("# Topics:\n%s\n\n# Question:\n%s: %s", knowledge.FormatTopics(results), senderTag(msg), msg.Content()),
	})
	if err != nil {
		return fmt.Errorf("failed to answer question: %w", err)
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		return fmt.Errorf("failed to answer question: %w", gemini.ErrEmptyResponse)
	}
	return SendAndSaveReply(ctx, deps, msg, answer)
}

// searchGroups is the message's group plus its related groups. A direct
// message searches every managed group.
func (h knowledgeHandler) searchGroups(ctx context.Context, msg *database.Message) ([]string, error) {
	var groups []*database.Group
	var jids []string

	if msg.Group != nil {
		related, err := h.deps.Store.GetRelatedGroups(ctx, msg.Group.GroupJID)
		if err != nil {
			return nil, fmt.Errorf("failed to load related groups: %w", err)
		}
		jids = append(jids, msg.Group.GroupJID)
		groups = related
	} else {
		managed, err := h.deps.Store.GetManagedGroups(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load managed groups: %w", err)
		}
		groups = managed
	}

	for _, g := range groups {
		jids = append(jids, g.GroupJID)
	}
	return jids, nil
}
