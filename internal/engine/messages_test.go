package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cookieguard/cookieguard/internal/types"
)

func TestRenderNudgeMessage(t *testing.T) {
	ctx := MessageContext{
		Handle:         "octocat",
		IssueTitle:     "Fix fetcher crash",
		DaysSinceClaim: 9,
	}

	tests := []struct {
		tone     types.NudgeTone
		contains []string
	}{
		{types.ToneFriendly, []string{"Hey @octocat", "Fix fetcher crash", "9 days ago", "No pressure"}},
		{types.ToneProfessional, []string{"Hello @octocat", "status update"}},
		{types.ToneConcerned, []string{"respond within 3 days"}},
		{types.ToneUrgent, []string{"URGENT", "24 hours"}},
		{types.ToneFinalWarning, []string{"FINAL NOTICE", "auto-released"}},
		{types.NudgeTone("UNKNOWN"), []string{"Hello @octocat"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.tone), func(t *testing.T) {
			msg := RenderNudgeMessage(tt.tone, ctx)
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

// The concerned tone joins the progress clause into a full sentence in
// both branches.
func TestRenderNudgeMessageConcernedGrammar(t *testing.T) {
	ctx := MessageContext{Handle: "octocat", IssueTitle: "Fix fetcher crash", DaysSinceClaim: 12}

	idle := RenderNudgeMessage(types.ToneConcerned, ctx)
	assert.Contains(t, idle, "12 days. We want to keep this issue moving.")

	ctx.ProgressDetected = true
	working := RenderNudgeMessage(types.ToneConcerned, ctx)
	assert.Contains(t, working, "12 days. While there was some initial progress, we want to keep this issue moving.")
	assert.NotContains(t, working, ". we want")
}

func TestRenderNudgeMessageProgressAcknowledged(t *testing.T) {
	ctx := MessageContext{Handle: "octocat", IssueTitle: "Fix fetcher crash", DaysSinceClaim: 5, ProgressDetected: true}

	assert.Contains(t, RenderNudgeMessage(types.ToneFriendly, ctx), "Great to see some activity")
	assert.Contains(t, RenderNudgeMessage(types.ToneProfessional, ctx), "We noticed some progress")

	// Urgent and final tones never soften the message.
	assert.False(t, strings.Contains(RenderNudgeMessage(types.ToneUrgent, ctx), "progress - thank you"))
}
