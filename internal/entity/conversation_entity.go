package entity

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ConversationMessage is one turn of the browser-held transcript.
type ConversationMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}
