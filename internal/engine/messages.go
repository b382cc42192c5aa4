package engine

import (
	"fmt"

	"github.com/cookieguard/cookieguard/internal/types"
)

// MessageContext carries the fields the tone templates interpolate.
type MessageContext struct {
	Handle           string
	IssueTitle       string
	DaysSinceClaim   int
	ProgressDetected bool
}

// RenderNudgeMessage produces the tone-specific message body for the
// notification dispatcher. Unknown tones fall back to professional.
func RenderNudgeMessage(tone types.NudgeTone, ctx MessageContext) string {
	progress := ""

	switch tone {
	case types.ToneFriendly:
		if ctx.ProgressDetected {
			progress = "Great to see some activity! "
		}
		return fmt.Sprintf(
			"Hey @%s! Just checking in on %q, which you claimed %d days ago.\n\n%sHow's it going? Need any help or have questions?\n\nNo pressure - just making sure you have what you need.",
			ctx.Handle, ctx.IssueTitle, ctx.DaysSinceClaim, progress,
		)

	case types.ToneConcerned:
		reminder := "We want to keep this issue moving."
		if ctx.ProgressDetected {
			reminder = "While there was some initial progress, we want to keep this issue moving."
		}
		return fmt.Sprintf(
			"Hi @%s,\n\nWe haven't seen updates on %q for %d days. %s\n\nPlease respond within 3 days with a status update, a request for help, or a release of the claim.",
			ctx.Handle, ctx.IssueTitle, ctx.DaysSinceClaim, reminder,
		)

	case types.ToneUrgent:
		return fmt.Sprintf(
			"@%s - URGENT\n\nIssue %q has been claimed for %d days without completion. This is the final reminder before auto-release.\n\nAction required within 24 hours: submit a PR, post a concrete progress update, or release the issue.",
			ctx.Handle, ctx.IssueTitle, ctx.DaysSinceClaim,
		)

	case types.ToneFinalWarning:
		return fmt.Sprintf(
			"FINAL NOTICE @%s\n\nIssue %q will be auto-released in 24 hours. No further extensions will be granted.\n\nSubmit progress immediately or the issue will be made available to other contributors.",
			ctx.Handle, ctx.IssueTitle,
		)

	default: // PROFESSIONAL and anything unrecognized
		if ctx.ProgressDetected {
			progress = "We noticed some progress - thank you! "
		}
		return fmt.Sprintf(
			"Hello @%s,\n\nThis is a follow-up on issue %q, claimed %d days ago. %sPlease provide a status update when you have a moment.\n\nIf you need assistance, feel free to reach out.",
			ctx.Handle, ctx.IssueTitle, ctx.DaysSinceClaim, progress,
		)
	}
}
