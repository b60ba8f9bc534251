package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
)

// botAlias is the pseudonym of the bot itself in transcripts.
const botAlias = "bot"

var (
	mentionPattern = regexp.MustCompile(`@(\d+)`)
	aliasPattern   = regexp.MustCompile(`@(user_\d+)`)
)

// speakers maps real user numbers to stable user_N aliases so transcripts
// sent to the model carry no phone numbers.
type speakers struct {
	alias map[string]string
	real  map[string]string
}

func newSpeakers(messages []*database.Message, selfUser string) *speakers {
	s := &speakers{alias: map[string]string{}, real: map[string]string{}}
	add := func(user string) {
		if user == "" {
			return
		}
		if _, ok := s.alias[user]; ok {
			return
		}
		a := "user_" + strconv.Itoa(len(s.alias)+1)
		s.alias[user] = a
		s.real[a] = user
	}
	for _, m := range messages {
		add(senderUser(m.SenderJID))
	}
	for _, m := range messages {
		for _, match := range mentionPattern.FindAllStringSubmatch(m.Content(), -1) {
			add(match[1])
		}
	}
	if selfUser != "" {
		if old, ok := s.alias[selfUser]; ok {
			delete(s.real, old)
		}
		s.alias[selfUser] = botAlias
		s.real[botAlias] = selfUser
	}
	return s
}

// deidentify swaps @number mentions for their aliases.
func (s *speakers) deidentify(text string) string {
	return mentionPattern.ReplaceAllStringFunc(text, func(tag string) string {
		if a, ok := s.alias[tag[1:]]; ok {
			return "@" + a
		}
		return tag
	})
}

// reidentify restores real numbers for the aliases in text.
func (s *speakers) reidentify(text string) string {
	return aliasPattern.ReplaceAllStringFunc(text, func(tag string) string {
		if u, ok := s.real[tag[1:]]; ok {
			return "@" + u
		}
		return tag
	})
}

// mentioned returns the real users credited in the texts, sorted.
func (s *speakers) mentioned(texts ...string) []string {
	var users []string
	for _, text := range texts {
		for _, match := range aliasPattern.FindAllStringSubmatch(text, -1) {
			if u, ok := s.real[match[1]]; ok && !slices.Contains(users, u) {
				users = append(users, u)
			}
		}
	}
	slices.Sort(users)
	return users
}

func (s *speakers) transcript(messages []*database.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		text := m.Content()
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: @%s: %s",
			m.Timestamp.UTC().Format(time.DateTime), s.alias[senderUser(m.SenderJID)], s.deidentify(text)))
	}
	return strings.Join(lines, "\n")
}

type topic struct {
	Subject string `json:"subject"`
	Summary string `json:"summary"`
}

// Ingester turns a slice of group conversation into knowledge-base topics.
type Ingester struct {
	client gemini.Client
	log    *slog.Logger
}

// NewIngester creates an Ingester.
func NewIngester(client gemini.Client, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{client: client, log: logger.With("component", "kb_ingester")}
}

// Topics asks the model to split messages into topics and embeds them.
// selfUser is the bot's own number, shown to the model as @bot.
func (in *Ingester) Topics(ctx context.Context, groupJID string, messages []*database.Message, selfUser string) ([]*database.KBTopic, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	messages = slices.Clone(messages)
	slices.SortStableFunc(messages, func(a, b *database.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	startTime := messages[0].Timestamp

	sp := newSpeakers(messages, selfUser)
	conversation := sp.transcript(messages)
	if conversation == "" {
		return nil, nil
	}

	var topics []topic
	if err := gemini.GenerateJSON(ctx, in.client, gemini.Request{
		SystemInstruction: gemini.TopicsInstruction,
		Prompt:            conversation,
		Schema:            gemini.TopicsSchema,
	}, &topics); err != nil {
		return nil, fmt.Errorf("failed to split conversation into topics: %w", err)
	}
	topics = slices.DeleteFunc(topics, func(t topic) bool {
		return strings.TrimSpace(t.Subject) == "" && strings.TrimSpace(t.Summary) == ""
	})
	if len(topics) == 0 {
		in.log.InfoContext(ctx, "Model found no topics", "group_jid", groupJID, "messages", len(messages))
		return nil, nil
	}

	documents := make([]string, len(topics))
	for i, t := range topics {
		documents[i] = "# " + t.Subject + "\n" + t.Summary
	}
	embeddings, err := in.client.Embed(ctx, documents)
	if err != nil {
		return nil, fmt.Errorf("failed to embed topics: %w", err)
	}
	if len(embeddings) != len(topics) {
		return nil, fmt.Errorf("got %d embeddings for %d topics", len(embeddings), len(topics))
	}

	out := make([]*database.KBTopic, len(topics))
	for i, t := range topics {
		out[i] = &database.KBTopic{
			ID:        TopicID(groupJID, startTime, t.Subject),
			GroupJID:  groupJID,
			StartTime: startTime,
			Speakers:  strings.Join(sp.mentioned(t.Subject, t.Summary), ","),
			Subject:   sp.reidentify(t.Subject),
			Summary:   sp.reidentify(t.Summary),
			Embedding: embeddings[i],
		}
	}
	in.log.InfoContext(ctx, "Extracted topics", "group_jid", groupJID, "messages", len(messages), "topics", len(out))
	return out, nil
}

// TopicID is deterministic so re-ingesting a window upserts its topics.
func TopicID(groupJID string, start time.Time, subject string) string {
	key := groupJID + "_" + start.UTC().Format(time.RFC3339) + "_" + subject
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
