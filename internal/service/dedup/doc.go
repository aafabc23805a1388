// Package dedup filters outreach candidates against contact history.
//
// A candidate is dropped when its email (compared lower-cased, full string)
// already appears on any of the user's own records, or, when merging, on a
// directly-sent record of a friend who has opted in to sharing. Filtering
// reads a snapshot and writes nothing.
package dedup
