package handler

import (
	"github.com/gorilla/mux"
	"github.com/passthekeys/outbound-core/pkg/logger"
)

// HandlerManager owns every HTTP handler and wires them onto a router. It
// holds no persistence or business logic of its own; that lives in the
// components each handler is constructed from.
type HandlerManager struct {
	trigger *TriggerHandler
	webhook *WebhookHandler
	cron    *CronHandler
	widget  *WidgetHandler
	calls   *CallsHandler

	cronSecret string
}

// NewHandlerManager assembles the handler set from the already-constructed
// per-endpoint handlers. Wiring their underlying domain components (the
// Trigger Ingress, Provider Webhook Ingress, Scheduler, and so on) is
// cmd/server's job; HandlerManager only turns them into routed endpoints.
func NewHandlerManager(
	trigger *TriggerHandler,
	webhook *WebhookHandler,
	cron *CronHandler,
	widget *WidgetHandler,
	calls *CallsHandler,
	cronSecret string,
) *HandlerManager {
	return &HandlerManager{
		trigger:    trigger,
		webhook:    webhook,
		cron:       cron,
		widget:     widget,
		calls:      calls,
		cronSecret: cronSecret,
	}
}

// SetupAllRoutes registers every route group behind the global CORS and
// logging middleware.
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(CORSMiddleware)
	router.Use(GlobalLoggingMiddleware)

	router.HandleFunc("/trigger/crm-a", hm.trigger.HandleCRMA).Methods("POST")
	router.HandleFunc("/trigger/crm-b", hm.trigger.HandleCRMB).Methods("POST")
	router.HandleFunc("/trigger/api", hm.trigger.HandleAPI).Methods("POST")

	router.HandleFunc("/webhook/provider-a", hm.webhook.HandleProviderA).Methods("POST")
	router.HandleFunc("/webhook/provider-b", hm.webhook.HandleProviderB).Methods("POST")
	router.HandleFunc("/webhook/provider-c", hm.webhook.HandleProviderC).Methods("POST")

	cronRouter := router.PathPrefix("/cron").Subrouter()
	cronRouter.Use(BearerAuthMiddleware(hm.cronSecret))
	cronRouter.HandleFunc("/process-scheduled", hm.cron.HandleProcessScheduled).Methods("POST")

	router.HandleFunc("/widget/{agentId}/session", hm.widget.HandleCreateSession).Methods("POST")

	router.HandleFunc("/calls/{id}/end", hm.calls.HandleEnd).Methods("POST")
	router.HandleFunc("/calls/active", hm.calls.HandleActive).Methods("GET")
	router.HandleFunc("/calls/{id}/live", hm.calls.HandleLive).Methods("GET")

	logger.Base().Info("all application routes registered")
}
