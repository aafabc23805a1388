package domain

import (
	"fmt"
	"strings"
	"time"
)

// Stage is the generation round that produced a record. It never changes
// after creation; progression creates a new record in the next stage.
type Stage string

const (
	StageOutreach   Stage = "outreach"
	StageFollowup   Stage = "followup"
	StageLastchance Stage = "lastchance"
)

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(strings.ToLower(strings.TrimSpace(s))); st {
	case StageOutreach, StageFollowup, StageLastchance:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
}

// Status is the lifecycle state of an outreach record.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusOutreachSent  Status = "outreach_sent"
	StatusFollowupDue   Status = "followup_due"
	StatusLastchanceDue Status = "lastchance_due"
	StatusSentByFriend  Status = "sent_by_friend"
	StatusCompleted     Status = "completed"
)

// Legacy spellings still found in stored rows and older clients.
const (
	legacyOutreachPending = "outreach_pending"
	legacySent            = "sent"
	legacySentByFriend    = "sent by friend"
)

// AllStatuses lists the canonical statuses in display order.
func AllStatuses() []Status {
	return []Status{
		StatusDraft, StatusOutreachSent, StatusFollowupDue,
		StatusLastchanceDue, StatusSentByFriend, StatusCompleted,
	}
}

// ParseStatus normalizes a status at the boundary. Legacy synonyms collapse
// to their canonical value; anything unrecognized is ErrInvalidStatus.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case legacyOutreachPending:
		return StatusDraft, nil
	case legacySent:
		return StatusOutreachSent, nil
	case legacySentByFriend:
		return StatusSentByFriend, nil
	}
	for _, st := range AllStatuses() {
		if Status(v) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsDirectlySent reports whether the owner sent this record themselves.
// These are the statuses friends' dedup and sharing treat as "sent".
func (s Status) IsDirectlySent() bool {
	switch s {
	case StatusOutreachSent, StatusFollowupDue, StatusLastchanceDue, StatusCompleted:
		return true
	}
	return false
}

// DirectlySentStatuses lists the statuses for which IsDirectlySent is true.
func DirectlySentStatuses() []Status {
	return []Status{StatusOutreachSent, StatusFollowupDue, StatusLastchanceDue, StatusCompleted}
}

// OutreachRecord is one generated email and its lifecycle state.
type OutreachRecord struct {
	ID               int64      `json:"id"`
	OwnerID          int64      `json:"owner_id"`
	TemplateID       *int64     `json:"template_id,omitempty"`
	OriginRecordID   *int64     `json:"origin_record_id,omitempty"`
	RecipientEmail   string     `json:"recipient_email"`
	RecipientName    string     `json:"recipient_name"`
	RecipientCompany string     `json:"recipient_company"`
	Subject          string     `json:"subject"`
	Body             string     `json:"body"`
	Stage            Stage      `json:"stage"`
	Status           Status     `json:"status"`
	ThreadID         string     `json:"thread_id,omitempty"`
	SharedByUserID   *int64     `json:"shared_by_user_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	SentAt           *time.Time `json:"sent_at"`
	FollowupDueAt    *time.Time `json:"followup_due_at"`
	LastchanceDueAt  *time.Time `json:"lastchance_due_at"`

	// RemindedFollowupAt is the FollowupDueAt value a reminder was last sent for.
	RemindedFollowupAt *time.Time `json:"-"`
	Version            int64      `json:"-"`
}

// Recipient returns the target identity of the record.
func (r *OutreachRecord) Recipient() Recipient {
	return Recipient{Email: r.RecipientEmail, Name: r.RecipientName, Company: r.RecipientCompany}
}

// EmailKey is the dedup key for the recipient: the full address, lower-cased.
func (r *OutreachRecord) EmailKey() string {
	return NormalizeEmail(r.RecipientEmail)
}

// NormalizeEmail lower-cases and trims an address. No alias or
// sub-address folding is applied.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Recipient identifies the person an outreach record targets.
type Recipient struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Title   string `json:"title,omitempty"`
	Website string `json:"website,omitempty"`
}

// Candidate is one entry of a contact batch considered for generation.
type Candidate struct {
	Recipient Recipient `json:"recipient"`
	Stage     Stage     `json:"stage"`
}

// Content is the drafted subject and body for a record.
type Content struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Template is an owner-scoped content template for one stage.
type Template struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Category  Stage     `json:"category"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// DraftRequest is everything a content provider needs to draft one email.
// Previous is set when drafting a child and holds the origin's content.
type DraftRequest struct {
	Recipient Recipient
	Stage     Stage
	Owner     OwnerProfile
	Template  *Template
	Previous  *Content
}
