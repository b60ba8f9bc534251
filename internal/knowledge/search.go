// Package knowledge builds and queries the group knowledge base: topics
// distilled from past conversations, embedded and ranked by similarity.
package knowledge

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

// Scored is a topic with its similarity to a query.
type Scored struct {
	Topic *database.KBTopic
	Score float64
}

// Search ranks topics by cosine similarity to query and returns the best k.
func Search(topics []*database.KBTopic, query []float32, k int) []Scored {
	results := make([]Scored, 0, len(topics))
	for _, t := range topics {
		results = append(results, Scored{Topic: t, Score: cosineSimilarity(query, t.Embedding)})
	}

	slices.SortStableFunc(results, func(a, b Scored) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FormatTopics renders retrieved topics for an answer prompt.
func FormatTopics(results []Scored) string {
	if len(results) == 0 {
		return "No related topics found."
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Topic.Subject + "\n" + r.Topic.Summary
	}
	return strings.Join(parts, "\n---\n")
}

// FormatHistory renders messages as a transcript, oldest first, each line
// "<time>: @<user>: <text>". Input order does not matter.
func FormatHistory(messages []*database.Message) string {
	sorted := slices.Clone(messages)
	slices.SortStableFunc(sorted, func(a, b *database.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var b strings.Builder
	for _, m := range sorted {
		text := m.Content()
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: @%s: %s\n", m.Timestamp.UTC().Format(time.DateTime), senderUser(m.SenderJID), text)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func senderUser(jid string) string {
	j, err := whatsapp.ParseJID(jid)
	if err != nil {
		return jid
	}
	return j.User
}
