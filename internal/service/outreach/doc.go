// Package outreach implements the outreach record lifecycle.
//
// The service owns every explicit status transition (mark-sent, set-status,
// last-chance generation) and the spawning of follow-up and last-chance
// children. A transition commits first; spawning a child is a side effect
// whose failure is reported in the TransitionResult and logged but never
// rolls the transition back.
//
// At most one child exists per (origin record, stage). Three mechanisms
// hold that line: the version guard on status writes, the unique
// (origin_record_id, stage) index behind Repository.Create, and a
// distributed lock around each spawn.
//
// Time-driven transitions live in worker.FollowupSweep, not here.
package outreach
