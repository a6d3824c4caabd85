// Package reminder decides when users are reminded about due items and
// runs the periodic tick that delivers those reminders.
//
// The pipeline has four stages: discovery reads candidate items, the
// Grouper folds them into one message per user, the Engine filters users
// that may not be contacted yet, and the Scheduler dispatches the rest
// through a Transport before recording each successful send.
package reminder
