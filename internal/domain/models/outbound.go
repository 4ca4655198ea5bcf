package models

// OutboundMessageRequest represents requests to send a message manually via the API.
type OutboundMessageRequest struct {
	To      string `json:"to" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// AutomationReply is the response sent back to staff for a parsed command.
type AutomationReply struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
