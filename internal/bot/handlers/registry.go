package handlers

// Intent is what a message addressed to the bot asks for.
type Intent string

// Intents understood by the router.
const (
	IntentSummarize   Intent = "summarize"
	IntentAskQuestion Intent = "ask_question"
	IntentAbout       Intent = "about"
	IntentOther       Intent = "other"
)

// RegisterIntentHandlers returns the strategy for every intent.
func RegisterIntentHandlers(deps HandlerDeps) map[Intent]HandlerFunc {
	return map[Intent]HandlerFunc{
		IntentSummarize:   NewSummarizeHandler(deps),
		IntentAskQuestion: NewKnowledgeHandler(deps),
		IntentAbout:       NewStaticHandler(deps, "about", deps.Config.Bot.Messages.About),
		IntentOther:       NewStaticHandler(deps, "other", deps.Config.Bot.Messages.CantHelp),
	}
}
