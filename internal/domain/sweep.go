package domain

import "time"

// SweepReport summarizes one pass of the follow-up sweep.
type SweepReport struct {
	RunID      string    `json:"run_id" dynamodbav:"run_id"`
	Now        time.Time `json:"now" dynamodbav:"now"`
	StartedAt  time.Time `json:"started_at" dynamodbav:"started_at"`
	FinishedAt time.Time `json:"finished_at" dynamodbav:"finished_at"`

	// Skipped is set when another sweep held the lock.
	Skipped bool `json:"skipped" dynamodbav:"skipped"`

	Scanned        int `json:"scanned" dynamodbav:"scanned"`
	Reminded       int `json:"reminded" dynamodbav:"reminded"`
	LastchanceDue  int `json:"lastchance_due" dynamodbav:"lastchance_due"`
	Completed      int `json:"completed" dynamodbav:"completed"`
	Conflicts      int `json:"conflicts" dynamodbav:"conflicts"`
	Failed         int `json:"failed" dynamodbav:"failed"`
	NotifyFailures int `json:"notify_failures" dynamodbav:"notify_failures"`
	OracleFailures int `json:"oracle_failures" dynamodbav:"oracle_failures"`
}
