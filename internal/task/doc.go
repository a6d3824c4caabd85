// Package task manages background job queuing and processing.
// It runs follow-up work, such as preparing a pending session after a
// reminder was delivered, outside the request and scheduler paths.
package task
