package http

import (
	"context"

	"github.com/example/tutoring-scheduler/internal/application"
)

type contextKey string

const (
	principalContextKey    contextKey = "principal"
	userIDContextKey       contextKey = "user_id"
	resourceIDContextKey   contextKey = "resource_id"
	enrollmentIDContextKey contextKey = "enrollment_id"
	lessonIDContextKey     contextKey = "lesson_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithUserID injects the user identifier resolved from the request path.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext extracts a user identifier previously associated with the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok
}

// ContextWithResourceID injects the meeting-resource identifier resolved from the request path.
func ContextWithResourceID(ctx context.Context, resourceID string) context.Context {
	return context.WithValue(ctx, resourceIDContextKey, resourceID)
}

// ResourceIDFromContext extracts a meeting-resource identifier previously associated with the context.
func ResourceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(resourceIDContextKey).(string)
	return id, ok
}

// ContextWithEnrollmentID injects the enrollment identifier resolved from the request path.
func ContextWithEnrollmentID(ctx context.Context, enrollmentID string) context.Context {
	return context.WithValue(ctx, enrollmentIDContextKey, enrollmentID)
}

// EnrollmentIDFromContext extracts an enrollment identifier previously associated with the context.
func EnrollmentIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(enrollmentIDContextKey).(string)
	return id, ok
}

// ContextWithLessonID injects the lesson identifier resolved from the request path.
func ContextWithLessonID(ctx context.Context, lessonID string) context.Context {
	return context.WithValue(ctx, lessonIDContextKey, lessonID)
}

// LessonIDFromContext extracts a lesson identifier previously associated with the context.
func LessonIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(lessonIDContextKey).(string)
	return id, ok
}
