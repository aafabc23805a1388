// Package sharing reconciles record statuses when a user toggles contact
// sharing with a friend, and annotates listings with the friend who already
// reached the same recipient.
//
// Matching is on (lower-cased recipient email, stage) against the friend's
// directly-sent records. A record the owner sent themselves is never
// touched.
package sharing
