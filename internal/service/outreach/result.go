package outreach

import "github.com/ignite/outreach-tracker/internal/domain"

// Outcome describes what the primary write of a transition did.
type Outcome struct {
	From    domain.Status `json:"from"`
	To      domain.Status `json:"to"`
	Changed bool          `json:"changed"`
}

// SideEffectOutcome reports the spawn attempted after a transition.
// Err is always wrapped with domain.ErrCollaboratorFailure.
type SideEffectOutcome struct {
	Stage          domain.Stage           `json:"stage"`
	Child          *domain.OutreachRecord `json:"child,omitempty"`
	AlreadyExisted bool                   `json:"already_existed"`
	Skipped        bool                   `json:"skipped"`
	Err            error                  `json:"-"`
}

// Failed reports whether the side effect was attempted and failed.
func (o *SideEffectOutcome) Failed() bool {
	return o != nil && o.Err != nil
}

// TransitionResult separates the committed primary transition from the
// best-effort side effect.
type TransitionResult struct {
	Record     *domain.OutreachRecord `json:"record"`
	Primary    Outcome                `json:"primary"`
	SideEffect *SideEffectOutcome     `json:"side_effect,omitempty"`
}
