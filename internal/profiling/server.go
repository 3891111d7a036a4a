package profiling

import (
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"riskcorr/internal"
)

// Server is the ops listener: liveness plus the Go profiling endpoints, kept
// off the public API port.
type Server struct {
	router *chi.Mux
	logger *internal.Logger
}

// NewServer builds the ops mux
func NewServer(logger *internal.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/debug/pprof/", pprof.Index)
	r.Get("/debug/pprof/cmdline", pprof.Cmdline)
	r.Get("/debug/pprof/profile", pprof.Profile)
	r.Get("/debug/pprof/symbol", pprof.Symbol)
	r.Get("/debug/pprof/trace", pprof.Trace)
	r.Handle("/debug/pprof/{name}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		pprof.Handler(chi.URLParam(req, "name")).ServeHTTP(w, req)
	}))

	return &Server{router: r, logger: logger}
}

// Start serves the ops listener; intended to run in its own goroutine.
func (s *Server) Start(port string) {
	s.logger.Info("[Profiling] ops listener on :%s", port)
	if err := http.ListenAndServe(":"+port, s.router); err != nil {
		s.logger.Error("[Profiling] ops listener failed: %v", err)
	}
}
