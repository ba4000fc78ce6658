package aggregator

import (
	"testing"

	"github.com/eldtechnologies/contextstack/internal/models"
)

func TestSynthesizeReply(t *testing.T) {
	msg := &models.Message{Text: "can you review PR #234"}

	tests := []struct {
		name    string
		actions []models.Action
		want    string
	}{
		{
			name:    "no actions",
			actions: nil,
			want:    "Thanks for sharing! Can you provide more details?",
		},
		{
			name:    "empty actions",
			actions: []models.Action{},
			want:    "Thanks for sharing! Can you provide more details?",
		},
		{
			name:    "first action with owner",
			actions: []models.Action{{Text: "review PR #234", Owner: "Lisa Park", Score: 0.9}},
			want:    "Noted: review PR #234 — assigning to Lisa Park.",
		},
		{
			name:    "first action without owner",
			actions: []models.Action{{Text: "deploy to staging", Score: 0.7}},
			want:    "Got it! I'll help with: deploy to staging",
		},
		{
			name: "only the first action counts",
			actions: []models.Action{
				{Text: "update docs", Score: 0.6},
				{Text: "review PR #234", Owner: "Lisa Park", Score: 0.9},
			},
			want: "Got it! I'll help with: update docs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SynthesizeReply(tt.actions, msg); got != tt.want {
				t.Errorf("SynthesizeReply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSynthesizeReplyIsDeterministic(t *testing.T) {
	actions := []models.Action{{Text: "fix login bug", Owner: "ash"}}
	first := SynthesizeReply(actions, nil)
	for i := 0; i < 10; i++ {
		if got := SynthesizeReply(actions, nil); got != first {
			t.Fatalf("call %d returned %q, want %q", i, got, first)
		}
	}
}
