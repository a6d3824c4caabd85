// Package events provides an in-process publish/subscribe seam.
//
// Producers emit an Event without knowing which handlers consume it, which
// keeps the reminder pipeline free of any dependency on the session service
// that reacts to a delivered reminder.
package events
