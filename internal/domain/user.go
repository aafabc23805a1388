package domain

import (
	"fmt"
	"time"
)

// Interval bounds and defaults, in days.
const (
	DefaultFollowupDays   = 3
	DefaultLastchanceDays = 6
	MinIntervalDays       = 1
	MaxIntervalDays       = 30
)

// IntervalSettings controls when follow-up and last-chance become due after
// an outreach is sent.
type IntervalSettings struct {
	FollowupDays   int `json:"followup_days"`
	LastchanceDays int `json:"lastchance_days"`
}

// DefaultIntervals returns the settings new users start with.
func DefaultIntervals() IntervalSettings {
	return IntervalSettings{FollowupDays: DefaultFollowupDays, LastchanceDays: DefaultLastchanceDays}
}

// NewIntervalSettings validates and builds interval settings.
func NewIntervalSettings(followupDays, lastchanceDays int) (IntervalSettings, error) {
	s := IntervalSettings{FollowupDays: followupDays, LastchanceDays: lastchanceDays}
	if err := s.Validate(); err != nil {
		return IntervalSettings{}, err
	}
	return s, nil
}

// Validate enforces 1..30 for both values and lastchance > followup.
func (s IntervalSettings) Validate() error {
	if s.FollowupDays < MinIntervalDays || s.FollowupDays > MaxIntervalDays {
		return fmt.Errorf("%w: followup days must be between %d and %d", ErrIntervalConfigInvalid, MinIntervalDays, MaxIntervalDays)
	}
	if s.LastchanceDays < MinIntervalDays || s.LastchanceDays > MaxIntervalDays {
		return fmt.Errorf("%w: last chance days must be between %d and %d", ErrIntervalConfigInvalid, MinIntervalDays, MaxIntervalDays)
	}
	if s.LastchanceDays <= s.FollowupDays {
		return fmt.Errorf("%w: last chance days must be greater than followup days", ErrIntervalConfigInvalid)
	}
	return nil
}

// OrDefault substitutes defaults for unset (zero) values, matching rows
// created before interval settings existed.
func (s IntervalSettings) OrDefault() IntervalSettings {
	if s.FollowupDays == 0 {
		s.FollowupDays = DefaultFollowupDays
	}
	if s.LastchanceDays == 0 {
		s.LastchanceDays = DefaultLastchanceDays
	}
	return s
}

// DueDates computes the follow-up and last-chance due times for a send at sentAt.
func (s IntervalSettings) DueDates(sentAt time.Time) (followup, lastchance time.Time) {
	return sentAt.AddDate(0, 0, s.FollowupDays), sentAt.AddDate(0, 0, s.LastchanceDays)
}

// User is an account owning outreach records.
type User struct {
	ID                 int64            `json:"id"`
	Email              string           `json:"email"`
	FullName           string           `json:"full_name"`
	Position           string           `json:"position"`
	CompanyName        string           `json:"company_name"`
	CompanyDescription string           `json:"company_description"`
	CombineContacts    bool             `json:"combine_contacts"`
	Intervals          IntervalSettings `json:"intervals"`

	GmailAccessToken  string     `json:"-"`
	GmailRefreshToken string     `json:"-"`
	GmailTokenExpiry  *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Profile returns the sender details used when drafting content.
func (u *User) Profile() OwnerProfile {
	return OwnerProfile{
		FullName:           u.FullName,
		Position:           u.Position,
		CompanyName:        u.CompanyName,
		CompanyDescription: u.CompanyDescription,
	}
}

// OwnerProfile is the sender identity handed to content providers.
type OwnerProfile struct {
	FullName           string `json:"full_name"`
	Position           string `json:"position"`
	CompanyName        string `json:"company_name"`
	CompanyDescription string `json:"company_description"`
}

// Friendship is one direction of a symmetric friend edge. Both directions
// are always stored together.
type Friendship struct {
	UserID   int64 `json:"user_id"`
	FriendID int64 `json:"friend_id"`
}

// FriendRequestStatus enumerates friend request states.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest is a pending or answered invitation between two users.
type FriendRequest struct {
	ID         int64               `json:"id"`
	FromUserID int64               `json:"from_user_id"`
	ToUserID   int64               `json:"to_user_id"`
	Status     FriendRequestStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
}
