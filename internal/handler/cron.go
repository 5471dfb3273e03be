package handler

import (
	"net/http"

	"github.com/passthekeys/outbound-core/internal/scheduler"
)

// CronHandler exposes POST /cron/process-scheduled, the external periodic
// driver's entry point into the Scheduler (§4.6).
type CronHandler struct {
	scheduler *scheduler.Scheduler
}

func NewCronHandler(s *scheduler.Scheduler) *CronHandler {
	return &CronHandler{scheduler: s}
}

func (h *CronHandler) HandleProcessScheduled(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.scheduler.Tick(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	counts := map[string]int{}
	for _, o := range outcomes {
		counts[o.Result]++
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"processed": len(outcomes),
		"results":   counts,
	})
}
