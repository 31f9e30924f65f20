package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/tutoring-scheduler/internal/application"
	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/testfixtures"
)

var adminPrincipal = application.Principal{UserID: "admin-1", Role: application.RoleAdmin}

func TestUserService_CreateUser(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.UserService()
	ctx := context.Background()

	input := application.UserInput{
		Email:       "New.Tutor@Example.com",
		DisplayName: "New Tutor",
		Role:        application.RoleTutor,
		TimeZone:    "America/New_York",
		Password:    "correct horse",
	}

	created, err := service.CreateUser(ctx, application.CreateUserParams{Principal: adminPrincipal, Input: input})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.Email != "new.tutor@example.com" {
		t.Errorf("expected normalized email, got %q", created.Email)
	}
	if created.ID == "" {
		t.Error("expected a generated ID")
	}

	// The stored hash must not be the plaintext password.
	stored, err := factory.Store.GetUser(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if stored.PasswordHash == input.Password {
		t.Error("password was stored in plaintext")
	}
}

func TestUserService_CreateUser_RequiresAdmin(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.UserService()

	_, err := service.CreateUser(context.Background(), application.CreateUserParams{
		Principal: application.Principal{UserID: "tutor-1", Role: application.RoleTutor},
		Input:     application.UserInput{Email: "x@example.com", DisplayName: "X", Role: application.RoleStudent, TimeZone: "UTC", Password: "password1"},
	})
	if !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserService_CreateUser_Validation(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.UserService()

	_, err := service.CreateUser(context.Background(), application.CreateUserParams{
		Principal: adminPrincipal,
		Input: application.UserInput{
			Email:       "not-an-email",
			DisplayName: "",
			Role:        "teacher",
			TimeZone:    "Mars/Olympus",
			Password:    "short",
		},
	})

	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"email", "display_name", "role", "time_zone", "password"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Errorf("expected a field error for %s", field)
		}
	}
}

func TestUserService_UpdateUser_SelfCannotChangeRole(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.UserService()
	ctx := context.Background()

	student := testfixtures.NewUserFixture(testfixtures.WithUserID("student-1"), testfixtures.WithUserRole(application.RoleStudent))
	factory.Store.Seed([]persistence.User{student}, nil, nil, nil)

	principal := application.Principal{UserID: "student-1", Role: application.RoleStudent}
	_, err := service.UpdateUser(ctx, application.UpdateUserParams{
		Principal: principal,
		UserID:    "student-1",
		Input: application.UserInput{
			Email:       student.Email,
			DisplayName: student.DisplayName,
			Role:        application.RoleAdmin,
			TimeZone:    student.TimeZone,
		},
	})
	if !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on self role escalation, got %v", err)
	}

	// The same update without a role change succeeds.
	updated, err := service.UpdateUser(ctx, application.UpdateUserParams{
		Principal: principal,
		UserID:    "student-1",
		Input: application.UserInput{
			Email:       student.Email,
			DisplayName: "Renamed",
			TimeZone:    student.TimeZone,
		},
	})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.DisplayName != "Renamed" {
		t.Errorf("expected renamed user, got %q", updated.DisplayName)
	}
}

func TestUserService_ListUsers_Scoping(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.UserService()
	ctx := context.Background()

	factory.Store.Seed([]persistence.User{
		testfixtures.NewUserFixture(testfixtures.WithUserRole(application.RoleTutor)),
		testfixtures.NewUserFixture(testfixtures.WithUserRole(application.RoleStudent)),
	}, nil, nil, nil)

	student := application.Principal{UserID: "someone", Role: application.RoleStudent}

	// Students may browse tutors.
	tutors, err := service.ListUsers(ctx, student, application.RoleTutor)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(tutors) != 1 {
		t.Errorf("expected 1 tutor, got %d", len(tutors))
	}

	// But not other students.
	if _, err := service.ListUsers(ctx, student, application.RoleStudent); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserService_DeleteUser(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.UserService()
	ctx := context.Background()

	user := testfixtures.NewUserFixture(testfixtures.WithUserID("doomed"))
	factory.Store.Seed([]persistence.User{user}, nil, nil, nil)

	if err := service.DeleteUser(ctx, adminPrincipal, "doomed"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := service.GetUser(ctx, adminPrincipal, "doomed"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
