package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/tutoring-scheduler/internal/application"
	"github.com/example/tutoring-scheduler/internal/persistence"
	"github.com/example/tutoring-scheduler/internal/testfixtures"
)

func seedCredentialedUser(factory *testfixtures.ServiceFactory, id, email, role, password string) {
	user := testfixtures.NewUserFixture(
		testfixtures.WithUserID(id),
		testfixtures.WithUserEmail(email),
		testfixtures.WithUserRole(role),
		testfixtures.WithUserPasswordHash("fake-hash:"+password),
	)
	factory.Store.Seed([]persistence.User{user}, nil, nil, nil)
}

func TestAuthService_Authenticate(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.AuthService(time.Hour)
	ctx := context.Background()

	seedCredentialedUser(factory, "tutor-1", "tutor@example.com", application.RoleTutor, "open sesame")

	result, err := service.Authenticate(ctx, application.AuthenticateParams{
		Email:    " Tutor@Example.com ",
		Password: "open sesame",
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if result.User.ID != "tutor-1" {
		t.Errorf("expected tutor-1, got %q", result.User.ID)
	}
	if result.Session.Token == "" {
		t.Error("expected a session token")
	}
	if want := factory.Clock.Now().Add(time.Hour); !result.Session.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, result.Session.ExpiresAt)
	}
}

func TestAuthService_Authenticate_WrongPassword(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.AuthService(time.Hour)

	seedCredentialedUser(factory, "tutor-1", "tutor@example.com", application.RoleTutor, "open sesame")

	_, err := service.Authenticate(context.Background(), application.AuthenticateParams{
		Email:    "tutor@example.com",
		Password: "wrong",
	})
	if !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Authenticate_UnknownUser(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.AuthService(time.Hour)

	_, err := service.Authenticate(context.Background(), application.AuthenticateParams{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	if !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.AuthService(time.Hour)
	ctx := context.Background()

	seedCredentialedUser(factory, "student-1", "s@example.com", application.RoleStudent, "open sesame")

	result, err := service.Authenticate(ctx, application.AuthenticateParams{Email: "s@example.com", Password: "open sesame"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	principal, err := service.ValidateSession(ctx, result.Session.Token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if principal.UserID != "student-1" || principal.Role != application.RoleStudent {
		t.Errorf("unexpected principal %+v", principal)
	}
}

func TestAuthService_ValidateSession_Expired(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.AuthService(time.Hour)
	ctx := context.Background()

	seedCredentialedUser(factory, "student-1", "s@example.com", application.RoleStudent, "open sesame")

	result, err := service.Authenticate(ctx, application.AuthenticateParams{Email: "s@example.com", Password: "open sesame"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	factory.Clock.Advance(2 * time.Hour)
	if _, err := service.ValidateSession(ctx, result.Session.Token); !errors.Is(err, application.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestAuthService_RevokeSession(t *testing.T) {
	factory := testfixtures.NewServiceFactory()
	service := factory.AuthService(time.Hour)
	ctx := context.Background()

	seedCredentialedUser(factory, "student-1", "s@example.com", application.RoleStudent, "open sesame")

	result, err := service.Authenticate(ctx, application.AuthenticateParams{Email: "s@example.com", Password: "open sesame"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if err := service.RevokeSession(ctx, result.Session.Token); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := service.ValidateSession(ctx, result.Session.Token); !errors.Is(err, application.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}
