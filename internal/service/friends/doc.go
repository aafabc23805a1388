// Package friends manages friend requests and the symmetric friendship
// graph that contact sharing runs on.
package friends
