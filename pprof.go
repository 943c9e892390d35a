package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// serves /debug/pprof/ on its own listener
func startHTTPDebugger(addr string) {
	r := chi.NewRouter()
	r.Mount("/debug", middleware.Profiler())
	server := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warnf("pprof listener: %v", err)
		}
	}()
}
