package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
)

// ActionDeadline bounds each action's external HTTP call (§4.8 step 3).
const ActionDeadline = 15 * time.Second

// MaxActionRetries is the number of retries on top of the first attempt.
const MaxActionRetries = 2

// runAction dispatches one action by type, applying template interpolation
// to its config first. It returns whether the action requests fatal_stop.
func (e *Executor) runAction(ctx context.Context, action domain.Action, tenant *domain.Tenant, payload map[string]interface{}) (fatalStop bool, attempts int, err error) {
	config := interpolateConfig(action.Config, payload)

	if !domain.ActionRegistry[action.Type] {
		return false, 0, apperr.ValidationError("unknown action type %q", action.Type)
	}

	switch {
	case action.Type == domain.ActionWebhookHTTP:
		attempts, err = e.withRetry(ctx, func(ctx context.Context) error { return e.doWebhook(ctx, config) })
	case strings.HasPrefix(string(action.Type), "crm_"):
		attempts, err = e.withRetry(ctx, func(ctx context.Context) error { return e.doCRM(ctx, tenant, action.Type, config) })
	case strings.HasPrefix(string(action.Type), "calendar_"):
		attempts, err = e.withRetry(ctx, func(ctx context.Context) error { return e.doCalendar(ctx, tenant, action.Type, config) })
	case strings.HasPrefix(string(action.Type), "scheduling_"):
		attempts, err = e.withRetry(ctx, func(ctx context.Context) error { return e.doSchedulingVendor(ctx, tenant, action.Type, config) })
	default:
		// send_sms, send_email, send_followup_*, chat_notify, slack_notify, pager_notify
		attempts, err = e.withRetry(ctx, func(ctx context.Context) error { return e.doNotify(ctx, tenant, action.Type, config) })
	}

	if err == nil && domain.FatalStopActions[action.Type] {
		fatalStop = true
	}
	return fatalStop, attempts, err
}

// withRetry runs fn under a per-action deadline with up to MaxActionRetries
// retries on Retryable errors, exponential backoff base 1s multiplier 2
// jitter +/-20% (§4.8 step 3). It returns the number of attempts made.
func (e *Executor) withRetry(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	actionCtx, cancel := context.WithTimeout(ctx, ActionDeadline)
	defer cancel()

	attempts := 0
	backoff, err := newBackoff()
	if err != nil {
		return 0, err
	}
	err = retryDo(actionCtx, backoff, func(ctx context.Context) error {
		attempts++
		cause := fn(ctx)
		if cause == nil {
			return nil
		}
		if apperr.IsRetryable(cause) {
			return retryableError(cause)
		}
		return cause
	})
	return attempts, err
}

func (e *Executor) doWebhook(ctx context.Context, config domain.JSONB) error {
	url, _ := config["url"].(string)
	if err := validateWebhookURL(url); err != nil {
		return apperr.ValidationError("%s", err.Error())
	}
	resp, err := e.http.R().SetContext(ctx).SetBody(config).Post(url)
	return classifyActionResponse(resp, err)
}

// doCRM, doCalendar, doSchedulingVendor, and doNotify all resolve to a
// generic signed HTTP call against the tenant's configured integration
// endpoint; the closed action-type registry only changes which endpoint and
// OAuth token (if any) is used, not the transport.
func (e *Executor) doCRM(ctx context.Context, tenant *domain.Tenant, actionType domain.ActionType, config domain.JSONB) error {
	crmB := tenant.Integrations.CRMB
	if !crmB.Enabled {
		// CRM A has no OAuth step; it is reached with its own webhook secret.
		if !tenant.Integrations.CRMA.Enabled {
			return apperr.ConfigurationError("no CRM integration enabled for tenant " + tenant.ID)
		}
		return e.signedPost(ctx, "", tenant.Integrations.CRMA.PortalOrLocation, string(actionType), config)
	}
	token, err := e.tokens.AccessToken(ctx, tenant, integrationCRMB)
	if err != nil {
		return apperr.UpstreamFatalError("crm_b token refresh failed", err)
	}
	return e.signedPost(ctx, token, crmB.PortalOrLocation, string(actionType), config)
}

func (e *Executor) doCalendar(ctx context.Context, tenant *domain.Tenant, actionType domain.ActionType, config domain.JSONB) error {
	cal := tenant.Integrations.Calendar
	if !cal.Enabled {
		return apperr.ConfigurationError("calendar integration not enabled for tenant " + tenant.ID)
	}
	token, err := e.tokens.AccessToken(ctx, tenant, integrationCalendar)
	if err != nil {
		return apperr.UpstreamFatalError("calendar token refresh failed", err)
	}
	return e.signedPost(ctx, token, cal.CalendarID, string(actionType), config)
}

func (e *Executor) doSchedulingVendor(ctx context.Context, tenant *domain.Tenant, actionType domain.ActionType, config domain.JSONB) error {
	vendor := tenant.Integrations.SchedulingVendor
	if !vendor.Enabled {
		return apperr.ConfigurationError("scheduling vendor not enabled for tenant " + tenant.ID)
	}
	return e.signedPost(ctx, vendor.APIKey, "", string(actionType), config)
}

func (e *Executor) doNotify(ctx context.Context, tenant *domain.Tenant, actionType domain.ActionType, config domain.JSONB) error {
	if actionType == domain.ActionChatNotify {
		hook := tenant.Integrations.ChatWebhook
		if !hook.Enabled {
			return apperr.ConfigurationError("chat webhook not enabled for tenant " + tenant.ID)
		}
		if err := validateWebhookURL(hook.URL); err != nil {
			return apperr.ValidationError("%s", err.Error())
		}
		resp, err := e.http.R().SetContext(ctx).SetBody(config).Post(hook.URL)
		return classifyActionResponse(resp, err)
	}
	// SMS/email dispatch through the provider that already owns the phone
	// number relationship; modeled here as a generic signed call against the
	// tenant's generic API key, since the notification vendor is
	// tenant-configurable and opaque to the core (§9 Design Notes).
	return e.signedPost(ctx, tenant.Integrations.GenericAPIKey, "", string(actionType), config)
}

func (e *Executor) signedPost(ctx context.Context, token, resource, actionType string, config domain.JSONB) error {
	req := e.http.R().SetContext(ctx).SetBody(map[string]interface{}{
		"action":   actionType,
		"resource": resource,
		"payload":  config,
	})
	if token != "" {
		req.SetAuthToken(token)
	}
	resp, err := req.Post("/actions/" + actionType)
	return classifyActionResponse(resp, err)
}

func classifyActionResponse(resp *resty.Response, err error) error {
	if err != nil {
		return apperr.UpstreamRetryableError("action request failed", err)
	}
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
		return apperr.UpstreamRetryableError(fmt.Sprintf("action request returned %d", resp.StatusCode()), nil)
	}
	return apperr.UpstreamFatalError(fmt.Sprintf("action request returned %d", resp.StatusCode()), nil)
}
