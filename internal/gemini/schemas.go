package gemini

import "google.golang.org/genai"

// ZmanimQuerySchema constrains the zmanim query extraction.
var ZmanimQuerySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type": {Type: genai.TypeString, Enum: []string{"all", "specific", "none"}, Description: "'all' for the full list, 'specific' for a single zman, 'none' otherwise."},
		"zman": {
			Type: genai.TypeString,
			Enum: []string{
				"alot_hashachar", "netz_hachama", "sof_zman_shema", "sof_zman_tefila", "chatzot",
				"mincha_gedola", "plag_hamincha", "shkiat_hachama", "tzet_hakochavim",
			},
			Description: "The requested zman when type is 'specific'.",
		},
		"target": {Type: genai.TypeString, Enum: []string{"today", "tomorrow"}, Description: "Requested day, today by default."},
	},
	Required: []string{"type", "target"},
}

// IntentSchema constrains intent classification.
var IntentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent": {Type: genai.TypeString, Enum: []string{"summarize", "ask_question", "about", "other"}},
	},
	Required: []string{"intent"},
}

// TopicsSchema is the list of conversation topics for the knowledge base.
var TopicsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"subject": {Type: genai.TypeString, Description: "The subject of the topic."},
			"summary": {Type: genai.TypeString, Description: "A concise summary of the topic. Credit notable insights to the speaker by tagging them (e.g. @user_1)."},
		},
		Required: []string{"subject", "summary"},
	},
}

// SpamSchema is the invite-link spam verdict.
var SpamSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":       {Type: genai.TypeInteger, Description: "Spam score from 1 (not spam) to 5 (certainly spam)."},
		"explanation": {Type: genai.TypeString, Description: "Short explanation, about seven words."},
	},
	Required: []string{"score", "explanation"},
}
