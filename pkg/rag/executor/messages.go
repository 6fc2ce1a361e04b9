package executor

// Fixed replies for the non-generated paths of a turn.
const (
	MsgConsentRequest   = "I couldn't find a good answer in the available documents. Would you like me to search the web for you? (yes/no)"
	MsgConsentIndexDown = "The document index is currently unavailable, so I couldn't check the available documents. Would you like me to search the web for you? (yes/no)"
	MsgDeclined         = "Understood. I will not perform a web search at this time."
	MsgWebUnavailable   = "I'm sorry, web search is currently unavailable and the available documents don't contain an answer to your question."
	MsgSystemError      = "I'm sorry, something went wrong while generating an answer. Please try again."
)
