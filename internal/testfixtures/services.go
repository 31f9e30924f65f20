package testfixtures

import (
	"time"

	"github.com/example/tutoring-scheduler/internal/application"
)

// ServiceFactory assists tests with constructing application services over an
// in-memory store using deterministic identifiers and clocks.
type ServiceFactory struct {
	Store       *Store
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// NewServiceFactory constructs a factory with a fresh store, the reference
// clock, and a deterministic ID sequence.
func NewServiceFactory() *ServiceFactory {
	return &ServiceFactory{
		Store:       NewStore(),
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
	}
}

// UserService builds a user service over the factory's store.
func (f *ServiceFactory) UserService() *application.UserService {
	return application.NewUserService(f.Store, fakeHash, f.IDGenerator.NextFunc(), f.Clock.NowFunc())
}

// AuthService builds an auth service over the factory's store. Password
// verification compares against the fake hash used by UserService.
func (f *ServiceFactory) AuthService(sessionTTL time.Duration) *application.AuthService {
	return application.NewAuthService(f.Store, f.Store, fakeVerify, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), sessionTTL)
}

// ResourceService builds a resource service over the factory's store.
func (f *ServiceFactory) ResourceService() *application.ResourceService {
	return application.NewResourceService(f.Store, f.Store, f.Store, f.Location, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), nil)
}

// EnrollmentService builds an enrollment service over the factory's store.
func (f *ServiceFactory) EnrollmentService() *application.EnrollmentService {
	return application.NewEnrollmentService(f.Store, f.Store, f.Store, f.Store, f.Location, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), nil)
}

// LessonService builds a lesson service over the factory's store.
func (f *ServiceFactory) LessonService() *application.LessonService {
	return application.NewLessonService(f.Store, f.Store, f.Store, f.Store, f.Location, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), nil)
}

// MaterializerService builds a materializer service over the factory's store.
func (f *ServiceFactory) MaterializerService() *application.MaterializerService {
	return application.NewMaterializerService(f.Store, f.Store, f.Location, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), nil)
}

// fakeHash derives a recognizable fake hash so tests never pay the cost of
// argon2id.
func fakeHash(password string) (string, error) {
	return "fake-hash:" + password, nil
}

func fakeVerify(hashedPassword, password string) error {
	if hashedPassword == "fake-hash:"+password {
		return nil
	}
	return application.ErrInvalidCredentials
}
