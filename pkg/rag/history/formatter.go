package history

import "citizen-portal-be/internal/entity"

// MaxPromptHistory is how many trailing messages are carried into a prompt.
const MaxPromptHistory = 5

// Format keeps the most recent messages of a transcript, oldest first,
// and collapses every sender other than "user" to "bot".
func Format(history []entity.ConversationMessage) []entity.ConversationMessage {
	if len(history) == 0 {
		return []entity.ConversationMessage{}
	}

	start := 0
	if len(history) > MaxPromptHistory {
		start = len(history) - MaxPromptHistory
	}

	out := make([]entity.ConversationMessage, 0, len(history)-start)
	for _, msg := range history[start:] {
		sender := entity.SenderBot
		if msg.Sender == entity.SenderUser {
			sender = entity.SenderUser
		}
		out = append(out, entity.ConversationMessage{
			Sender:    sender,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		})
	}
	return out
}
