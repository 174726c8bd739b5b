package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/Desarso/advisorchat/models"
)

func record(id uint, seq int, role, content, messageID string) Message {
	return Message{
		Model:     gorm.Model{ID: id},
		Sequence:  seq,
		Role:      role,
		Content:   content,
		MessageID: messageID,
	}
}

func contents(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestSanitizeHistory_EmptyHistory(t *testing.T) {
	assert.Empty(t, SanitizeHistory(nil))
	assert.Empty(t, SanitizeHistory([]Message{}))
}

func TestSanitizeHistory_ValidHistory(t *testing.T) {
	msgs := []Message{
		record(1, 1, "user", "hi", "a"),
		record(2, 2, "assistant", "hello", "b"),
		record(3, 3, "system", "Proactive action: filed note", "c"),
	}
	assert.Equal(t, msgs, SanitizeHistory(msgs))
}

func TestSanitizeHistory_OrdersDuplicateSequences(t *testing.T) {
	msgs := []Message{
		record(3, 2, "assistant", "third", "c"),
		record(1, 1, "user", "first", "a"),
		record(2, 2, "user", "second", "b"),
	}
	assert.Equal(t, []string{"first", "second", "third"}, contents(SanitizeHistory(msgs)))
}

func TestSanitizeHistory_DropsUnknownRolesAndBlanks(t *testing.T) {
	msgs := []Message{
		record(1, 1, "user", "keep", "a"),
		record(2, 2, "model", "legacy role", "b"),
		record(3, 3, "assistant", "   ", "c"),
		record(4, 4, "assistant", "", "d"),
	}
	msgs[3].Metadata = &models.Metadata{ActionRequired: true}

	result := SanitizeHistory(msgs)
	assert.Equal(t, []string{"keep", ""}, contents(result))
	assert.True(t, result[1].Metadata.ActionRequired)
}

func TestSanitizeHistory_DropsRepeatedMessageIDs(t *testing.T) {
	msgs := []Message{
		record(1, 1, "user", "once", "a"),
		record(2, 2, "user", "once again", "a"),
		record(3, 3, "user", "no id", ""),
		record(4, 4, "user", "no id either", ""),
	}
	assert.Equal(t, []string{"once", "no id", "no id either"}, contents(SanitizeHistory(msgs)))
}

func TestSanitizeHistory_DoesNotMutateInput(t *testing.T) {
	msgs := []Message{
		record(2, 2, "assistant", "b", "b"),
		record(1, 1, "user", "a", "a"),
	}
	SanitizeHistory(msgs)
	assert.Equal(t, "b", msgs[0].Content)
}
