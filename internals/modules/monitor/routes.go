package monitor

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/heartbeat/{token}", h.Heartbeat)
	r.Post("/cron/{token}", h.CronRun)

	return r
}

/*
- POST: /api/v1/ping/heartbeat/{token} -> record an inbound heartbeat ping
	req auth : none (token is the credential)
	body : nil
	resp : HeartbeatResponse

- POST: /api/v1/ping/cron/{token} -> record a cronjob run report
	req auth : none (token is the credential)
	body : CronRunRequest (optional)
	resp : CronRunAck
*/
