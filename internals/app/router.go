package app

import (
	"net/http"
	"time"

	middle "pulsewatch/internals/middleware"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func RegisterRoutes(c *Container) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middle.Logger(c.Logger))
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", c.healthz)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Mount("/ping", monitor.Routes(c.monitorHandler))
	})

	return r
}

type healthResponse struct {
	Status        string `json:"status"`
	Mode          string `json:"mode"`
	FallbackCount int64  `json:"fallback_count"`

	Runner any `json:"runner,omitempty"`
}

func (c *Container) healthz(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	resp := healthResponse{
		Status:        "ok",
		Mode:          c.Config.Mode,
		FallbackCount: c.dispatcher.FallbackCount(),
	}
	if c.runner != nil {
		resp.Runner = c.runner.Status()
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", resp)
}
