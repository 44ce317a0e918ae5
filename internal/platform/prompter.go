package platform

import (
	"context"

	"github.com/GenturixHub/genturix-push/internal/pushsync"
)

// PolicyPrompter answers the notification permission prompt from
// configuration. A headless kiosk has nobody to click a dialog, so the
// installer decides once: grant, deny, or leave it undecided.
type PolicyPrompter struct {
	Decision pushsync.Permission
}

// PolicyFromEnv maps a PUSH_PERMISSION value to a prompter. Unknown or empty
// values leave the decision at "default", which blocks subscribing until the
// configuration says otherwise.
func PolicyFromEnv(v string) PolicyPrompter {
	switch v {
	case "granted":
		return PolicyPrompter{Decision: pushsync.PermissionGranted}
	case "denied":
		return PolicyPrompter{Decision: pushsync.PermissionDenied}
	default:
		return PolicyPrompter{Decision: pushsync.PermissionDefault}
	}
}

func (p PolicyPrompter) Request(ctx context.Context) (pushsync.Permission, error) {
	return p.Decision, nil
}

func (p PolicyPrompter) Current() pushsync.Permission { return p.Decision }
