package aggregator

import (
	"fmt"

	"github.com/eldtechnologies/contextstack/internal/models"
)

// GenericReply is suggested when no action item was found.
const GenericReply = "Thanks for sharing! Can you provide more details?"

// SynthesizeReply derives a one-line suggested reply from extracted actions.
// Only the first action is considered, in the order the extractor produced them.
func SynthesizeReply(actions []models.Action, _ *models.Message) string {
	if len(actions) == 0 {
		return GenericReply
	}

	action := actions[0]
	if action.Owner != "" {
		return fmt.Sprintf("Noted: %s — assigning to %s.", action.Text, action.Owner)
	}
	return fmt.Sprintf("Got it! I'll help with: %s", action.Text)
}
