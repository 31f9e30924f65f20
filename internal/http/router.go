package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires the handlers and middleware into one http.Handler. The
// session endpoints stay outside RequireSession; everything else is mounted
// behind it.
type RouterConfig struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Resources    *ResourceHandler
	Enrollments  *EnrollmentHandler
	Lessons      *LessonHandler
	Materializer *MaterializerHandler
	Planner      *PlannerHandler

	// RequireSession guards the authenticated subtree.
	RequireSession func(http.Handler) http.Handler
	// Middleware wraps the whole router, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	root := http.NewServeMux()

	if cfg.Auth != nil {
		root.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		root.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	protected := http.NewServeMux()

	if cfg.Users != nil {
		protected.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Users.List(w, r)
			case http.MethodPost:
				cfg.Users.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/users/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithUserID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Users.Get(w, r)
			case http.MethodPut:
				cfg.Users.Update(w, r)
			case http.MethodDelete:
				cfg.Users.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Resources != nil {
		protected.HandleFunc("/resources", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Resources.List(w, r)
			case http.MethodPost:
				cfg.Resources.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/resources/availability", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Resources.Availability(w, r)
		})
		protected.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/resources/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Resources.Get(w, r)
			case http.MethodPut:
				cfg.Resources.Update(w, r)
			case http.MethodDelete:
				cfg.Resources.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Enrollments != nil {
		protected.HandleFunc("/enrollments", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Enrollments.List(w, r)
			case http.MethodPost:
				cfg.Enrollments.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/enrollments/", func(w http.ResponseWriter, r *http.Request) {
			id, action := splitPathAction(r.URL.Path, "/enrollments/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEnrollmentID(r.Context(), id))

			switch action {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Enrollments.Get(w, r)
				case http.MethodPut:
					cfg.Enrollments.Update(w, r)
				case http.MethodDelete:
					cfg.Enrollments.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "pause":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Enrollments.SetPaused(w, r, true)
			case "resume":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Enrollments.SetPaused(w, r, false)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Lessons != nil {
		protected.HandleFunc("/lessons", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Lessons.List(w, r)
			case http.MethodPost:
				cfg.Lessons.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/lessons/", func(w http.ResponseWriter, r *http.Request) {
			id, action := splitPathAction(r.URL.Path, "/lessons/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithLessonID(r.Context(), id))

			switch action {
			case "":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Lessons.Get(w, r)
			case "cancel":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Lessons.Cancel(w, r)
			case "complete":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Lessons.Complete(w, r)
			case "reschedule":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Lessons.Reschedule(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Materializer != nil {
		protected.HandleFunc("/materializer/runs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Materializer.Run(w, r)
		})
	}

	if cfg.Planner != nil {
		protected.HandleFunc("/planner/slots/validate", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Planner.ValidateSlot(w, r)
		})
		protected.HandleFunc("/planner/time-options", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Planner.TimeOptions(w, r)
		})
		protected.HandleFunc("/planner/open-windows", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Planner.OpenWindows(w, r)
		})
	}

	var guarded http.Handler = protected
	if cfg.RequireSession != nil {
		guarded = cfg.RequireSession(protected)
	}
	root.Handle("/", guarded)

	var handler http.Handler = root
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

// splitPathAction resolves "/prefix/{id}" and "/prefix/{id}/{action}" paths.
func splitPathAction(path, prefix string) (id, action string) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
