package purchase

import (
	"sync"

	"github.com/nvasquez/stagefront-backend/pkg/enums"
)

// attempt is one pass through the confirmation state machine. Each attempt
// owns exactly one payment intent; a failed attempt is abandoned and the
// surface opens a fresh one.
type attempt struct {
	mu sync.Mutex

	id     string
	userID string
	req    OpenRequest

	state          enums.PurchaseState
	clientSecret   string
	intentRef      string
	failureMessage string

	cancelGateSub func()
	onClose       func()
}

// transition moves the attempt to next and reports whether the move happened.
// Terminal states are sticky.
func (a *attempt) transition(next enums.PurchaseState) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.IsTerminal() {
		return false
	}
	a.state = next
	return true
}

// beginConfirmation claims the single transition out of intent_ready and
// consumes the client secret. A second caller gets ok=false.
func (a *attempt) beginConfirmation() (secret string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != enums.PurchaseStateIntentReady {
		return "", false
	}
	a.state = enums.PurchaseStateConfirming
	secret = a.clientSecret
	a.clientSecret = ""
	return secret, true
}

func (a *attempt) fail(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.IsTerminal() {
		return
	}
	a.state = enums.PurchaseStateFailed
	a.failureMessage = message
	a.clientSecret = ""
}

// forceUnavailable is the gate-flip path. A confirmation already in flight is
// allowed to finish; everything earlier is shut down and the surface closed.
func (a *attempt) forceUnavailable() {
	a.mu.Lock()
	if a.state.IsTerminal() || a.state == enums.PurchaseStateConfirming {
		a.mu.Unlock()
		return
	}
	a.state = enums.PurchaseStateUnavailable
	a.clientSecret = ""
	onClose := a.onClose
	a.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

func (a *attempt) view() *AttemptView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &AttemptView{
		ID:             a.id,
		State:          a.state,
		ClientSecret:   a.clientSecret,
		IntentRef:      a.intentRef,
		FailureMessage: a.failureMessage,
	}
}

// AttemptView is the read-only snapshot handed to callers.
type AttemptView struct {
	ID             string              `json:"id"`
	State          enums.PurchaseState `json:"state"`
	ClientSecret   string              `json:"client_secret,omitempty"`
	IntentRef      string              `json:"intent_ref,omitempty"`
	FailureMessage string              `json:"failure_message,omitempty"`
}
