// Package settings reads and updates per-user follow-up interval settings.
package settings
