// Package http provides the HTTP handlers and middleware for the tutoring
// scheduler API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}.
//     The token is returned in the body and surfaced via the `X-Session-Token`
//     header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted
//     from the Authorization header or session cookie. Returns 204 No Content
//     and clears the cookie.
//   - GET /users, POST /users, GET/PUT/DELETE /users/{id}: account management
//     exchanging the `userDTO` payload defined in user_handler.go. Creation
//     and deletion are administrator controlled.
//   - GET /resources, POST /resources, GET/PUT/DELETE /resources/{id}: the
//     shared meeting pool, exchanging the `resourceDTO` payload defined in
//     resource_handler.go. Mutations require admin privileges.
//   - POST /resources/availability: probes the pool for a concrete window or
//     a weekly pattern and reports per-resource availability.
//   - GET /enrollments, POST /enrollments, GET/PUT/DELETE /enrollments/{id},
//     POST /enrollments/{id}/pause, POST /enrollments/{id}/resume: recurring
//     student-tutor pairings exchanging the `enrollmentDTO` payload defined in
//     enrollment_handler.go.
//   - GET /lessons, POST /lessons, GET /lessons/{id},
//     POST /lessons/{id}/cancel, POST /lessons/{id}/complete,
//     POST /lessons/{id}/reschedule: concrete dated sessions exchanging the
//     `lessonDTO` payload defined in lesson_handler.go.
//   - POST /materializer/runs: generates the lessons for one week
//     (administrators only).
//   - POST /planner/slots/validate, GET /planner/time-options,
//     POST /planner/open-windows: the interactive scheduling-form helpers.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth. Request bodies are checked with
// go-playground/validator before they reach the application services.
package http
