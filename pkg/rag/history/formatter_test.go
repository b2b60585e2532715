package history

import (
	"fmt"
	"testing"

	"citizen-portal-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func transcript(n int) []entity.ConversationMessage {
	msgs := make([]entity.ConversationMessage, n)
	for i := range msgs {
		sender := entity.SenderUser
		if i%2 == 1 {
			sender = entity.SenderBot
		}
		msgs[i] = entity.ConversationMessage{
			Sender:    sender,
			Text:      fmt.Sprintf("message %d", i),
			Timestamp: fmt.Sprintf("2026-01-01T00:00:%02dZ", i),
		}
	}
	return msgs
}

func TestFormatEmpty(t *testing.T) {
	assert.Empty(t, Format(nil))
	assert.NotNil(t, Format(nil))
	assert.Empty(t, Format([]entity.ConversationMessage{}))
}

func TestFormatShortHistoryUnchanged(t *testing.T) {
	for n := 1; n <= MaxPromptHistory; n++ {
		in := transcript(n)
		assert.Equal(t, in, Format(in), "n=%d", n)
	}
}

func TestFormatKeepsLastMessagesInOrder(t *testing.T) {
	in := transcript(12)
	got := Format(in)

	if len(got) != MaxPromptHistory {
		t.Fatalf("len = %d, want %d", len(got), MaxPromptHistory)
	}
	for i, msg := range got {
		want := in[7+i]
		if msg.Text != want.Text {
			t.Errorf("got[%d].Text = %q, want %q", i, msg.Text, want.Text)
		}
	}
}

func TestFormatNormalizesSender(t *testing.T) {
	in := []entity.ConversationMessage{
		{Sender: "user", Text: "hi"},
		{Sender: "assistant", Text: "hello"},
		{Sender: "USER", Text: "shouting"},
		{Sender: "", Text: "anonymous"},
		{Sender: "bot", Text: "reply"},
	}

	got := Format(in)

	senders := make([]string, len(got))
	for i, m := range got {
		senders[i] = m.Sender
	}
	assert.Equal(t, []string{"user", "bot", "bot", "bot", "bot"}, senders)
	assert.Equal(t, "assistant", in[1].Sender, "input must not be mutated")
}
