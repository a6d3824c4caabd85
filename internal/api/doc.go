// Package api exposes the review session, single-item review and reminder
// settings operations over HTTP. Handlers translate requests into service
// calls and map domain error codes to status codes at one boundary.
package api
