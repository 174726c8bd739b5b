package stores

import (
	"sort"
	"strings"

	"github.com/Desarso/advisorchat/models"
)

// SanitizeHistory prepares stored messages for a client transcript.
//
// SaveMessage numbers messages by counting, so two concurrent writers can
// produce the same Sequence. The result is ordered by Sequence, then by
// insertion id, and:
//   - records with a role outside user/assistant/system are dropped
//   - records with blank content and no metadata are dropped
//   - records repeating an earlier MessageID are dropped
func SanitizeHistory(msgs []Message) []Message {
	if len(msgs) == 0 {
		return msgs
	}

	ordered := append([]Message(nil), msgs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Sequence != ordered[j].Sequence {
			return ordered[i].Sequence < ordered[j].Sequence
		}
		return ordered[i].ID < ordered[j].ID
	})

	seen := make(map[string]struct{}, len(ordered))
	result := make([]Message, 0, len(ordered))
	for _, msg := range ordered {
		if !models.Role(msg.Role).Valid() {
			continue
		}
		if strings.TrimSpace(msg.Content) == "" && msg.Metadata == nil {
			continue
		}
		if msg.MessageID != "" {
			if _, dup := seen[msg.MessageID]; dup {
				continue
			}
			seen[msg.MessageID] = struct{}{}
		}
		result = append(result, msg)
	}
	return result
}
