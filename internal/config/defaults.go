package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultServerAddr            = ":8000"
	DefaultServerMode            = "release"
	DefaultServerShutdownTimeout = 10 * time.Second
	DefaultServerHandlerTimeout  = 2 * time.Minute

	DefaultDBPath = "storage.db"

	DefaultWhatsAppBaseURL = "http://localhost:3000"
	DefaultWhatsAppTimeout = 30 * time.Second

	DefaultGeminiModel          = "gemini-2.0-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
	DefaultGeminiTemperature    = 0.3
	DefaultGeminiMaxRetries     = 1
	DefaultGeminiRetryDelay     = 2 * time.Second
	DefaultGeminiTimeout        = 30 * time.Second

	DefaultLocationName      = "לוד"
	DefaultLocationLatitude  = 31.9515
	DefaultLocationLongitude = 34.8955
	DefaultLocationTimezone  = "Asia/Jerusalem"

	DefaultZmanimCacheSize     = 4
	DefaultZmanimHebcalURL     = "https://www.hebcal.com"
	DefaultZmanimHebcalTimeout = 5 * time.Second

	DefaultBotSummaryWindow = 24 * time.Hour
	DefaultBotSummaryLimit  = 30
	DefaultBotHistoryLimit  = 7
	DefaultBotTopicsLimit   = 5
)

// DefaultZmanimBackends is the backend priority order.
var DefaultZmanimBackends = []string{"hebcal", "sunrise", "noaa"}

// DefaultBotKeywords must appear in a mention for it to be routed.
var DefaultBotKeywords = []string{"bot"}

// DefaultBotMessages are the fixed replies.
var DefaultBotMessages = BotMessages{
	About: "I'm an open-source bot created for the GenAI Israel community - https://llm.org.il.\n" +
		"I can help you catch up on the chat messages and answer questions based on the group's knowledge.\n" +
		"Please send me PRs and star me at https://github.com/ilanbenb/wa_llm ⭐️",
	CantHelp: "I'm sorry, but I dont think this is something I can help with right now 😅.\n" +
		" I can help catch up on the chat messages or answer questions based on the group's knowledge.",
	ZmanimUnavailable: "😔 מצטער, זמני היום אינם זמינים כרגע. נסו שוב מאוחר יותר.",
}

// DefaultTasks are the scheduled jobs and their cron expressions.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance":  {Enabled: true, Schedule: "0 4 * * 0"},
	"group_sync":       {Enabled: true, Schedule: "0 * * * *"},
	"knowledge_ingest": {Enabled: true, Schedule: "30 2 * * *"},
	"group_summary":    {Enabled: false, Schedule: "0 20 * * *"},
}
