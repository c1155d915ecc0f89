package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/billing"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const webhookTimeout = 15 * time.Second

// OutcomeCounter tracks webhook outcomes. Implemented by counter.Outcomes.
type OutcomeCounter interface {
	Record(ctx context.Context, outcome string) error
	Snapshot(ctx context.Context) (map[string]int64, error)
	Drain(ctx context.Context) (map[string]int64, error)
}

type BillingController struct {
	service      *billing.Service
	webhookToken string
	outcomes     OutcomeCounter
}

// NewBillingController wires the billing handlers. An empty webhookToken
// disables the webhook token check; outcomes may be nil.
func NewBillingController(service *billing.Service, webhookToken string, outcomes OutcomeCounter) *BillingController {
	return &BillingController{
		service:      service,
		webhookToken: strings.TrimSpace(webhookToken),
		outcomes:     outcomes,
	}
}

type webhookAck struct {
	Received    bool       `json:"received"`
	Duplicate   bool       `json:"duplicate,omitempty"`
	Status      string     `json:"status,omitempty"`
	Error       bool       `json:"error,omitempty"`
	Message     string     `json:"message,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

// HandleAsaasWebhook answers 200 for every authenticated, well-formed
// delivery. Processing failures are kept on the event row.
func (bc *BillingController) HandleAsaasWebhook(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fiberlog.Errorf("[Webhook] Panic while handling delivery: %v", r)
			err = c.Status(fiber.StatusOK).JSON(webhookAck{Received: true, Error: true, Message: "Internal processing error"})
		}
	}()

	token := firstHeaderValue(c, billing.AsaasWebhookTokenHeader, billing.AsaasAccessTokenHeader)
	if !billing.VerifyAsaasWebhookToken(bc.webhookToken, token) {
		fiberlog.Warnf("[Webhook] Invalid token from %s", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Webhook token inválido"})
	}

	rawBody := append([]byte(nil), c.Body()...)
	payload, err := billing.ParseAsaasWebhook(rawBody)
	if err != nil {
		fiberlog.Warnf("[Webhook] Rejected payload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Evento ou ID de pagamento não encontrado"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	res, err := bc.service.ProcessWebhook(ctx, models.BillingProviderAsaas, payload, rawBody)
	if err != nil {
		fiberlog.Errorf("[Webhook] Bookkeeping failed for %s/%s: %v", payload.Event, payload.Payment.ID, err)
		bc.record(ctx, "internal_error")
		return c.Status(fiber.StatusOK).JSON(webhookAck{Received: true, Error: true, Message: "Internal processing error"})
	}
	bc.record(ctx, string(res.Outcome))

	ack := webhookAck{Received: true}
	switch res.Outcome {
	case billing.OutcomeDuplicate:
		ack.Duplicate = true
		ack.ProcessedAt = res.ProcessedAt
	case billing.OutcomeProcessing:
		ack.Duplicate = true
	case billing.OutcomeError:
		ack.Status = string(billing.OutcomeError)
		ack.Message = res.Message
	default:
		ack.Status = string(billing.OutcomeProcessed)
		if res.Ignored {
			ack.Message = res.Message
		}
	}
	return c.Status(fiber.StatusOK).JSON(ack)
}

func (bc *BillingController) record(ctx context.Context, outcome string) {
	if bc.outcomes == nil {
		return
	}
	if err := bc.outcomes.Record(ctx, outcome); err != nil {
		fiberlog.Warnf("[Webhook] Could not record outcome %s: %v", outcome, err)
	}
}

func (bc *BillingController) HandleListPlans(c *fiber.Ctx) error {
	plans, err := bc.service.ListPlans(c.UserContext())
	if err != nil {
		fiberlog.Errorf("[Billing] List plans failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Erro ao buscar planos"})
	}
	return c.JSON(plans)
}

func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Não autenticado"})
	}

	var req billing.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Requisição inválida"})
	}

	res, err := bc.service.Checkout(c.UserContext(), userID, req)
	if err != nil {
		if billing.IsClientError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(clientError(err))
		}
		fiberlog.Errorf("[Billing] Checkout for %s failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Erro ao processar checkout"})
	}

	return c.JSON(fiber.Map{
		"orderId":           res.Order.ID,
		"externalReference": res.ExternalReference,
		"order":             res.Order,
		"coupon":            res.Coupon,
	})
}

func (bc *BillingController) HandleStatus(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn || uc.UserID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Não autenticado"})
	}

	state, err := bc.service.AccessStatus(c.UserContext(), uc.UserID, uc.IsAdmin)
	if err != nil {
		fiberlog.Errorf("[Billing] Status for %s failed: %v", uc.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Erro ao verificar status"})
	}
	return c.JSON(state)
}

func (bc *BillingController) HandleListOrders(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Não autenticado"})
	}

	orders, err := bc.service.ListOrders(c.UserContext(), userID)
	if err != nil {
		fiberlog.Errorf("[Billing] Orders for %s failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Erro ao buscar pedidos"})
	}
	if orders == nil {
		orders = []models.BillingOrder{}
	}
	return c.JSON(orders)
}

type validateCouponRequest struct {
	CouponCode string `json:"couponCode"`
	PlanCode   string `json:"planCode"`
}

func (bc *BillingController) HandleValidateCoupon(c *fiber.Ctx) error {
	var req validateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false, "message": "Requisição inválida"})
	}

	res, err := bc.service.ValidateCoupon(c.UserContext(), req.CouponCode, req.PlanCode)
	if err != nil {
		if errors.Is(err, billing.ErrCouponCodeRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(res)
		}
		fiberlog.Errorf("[Coupon] Validation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"valid": false, "message": "Erro ao validar cupom"})
	}
	return c.JSON(res)
}

func (bc *BillingController) HandleAdminWebhookEvents(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := bc.service.ListWebhookEvents(c.UserContext(), c.Query("status"), limit)
	if err != nil {
		if billing.IsClientError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(clientError(err))
		}
		fiberlog.Errorf("[Webhook] Listing events failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	if events == nil {
		events = []models.WebhookEvent{}
	}
	return c.JSON(fiber.Map{"events": events, "count": len(events)})
}

func (bc *BillingController) HandleAdminWebhookStats(c *fiber.Ctx) error {
	if bc.outcomes == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "counters_disabled"})
	}

	read := bc.outcomes.Snapshot
	if c.QueryBool("reset") {
		read = bc.outcomes.Drain
	}
	counts, err := read(c.UserContext())
	if err != nil {
		fiberlog.Errorf("[Webhook] Reading outcome counters failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "counters_unavailable"})
	}
	return c.JSON(fiber.Map{"outcomes": counts})
}

func clientError(err error) fiber.Map {
	switch {
	case errors.Is(err, billing.ErrPlanRequired):
		return fiber.Map{"error": "plan_required", "message": "Plano não informado"}
	case errors.Is(err, billing.ErrPlanNotFound):
		return fiber.Map{"error": "plan_not_found", "message": "Plano não encontrado"}
	case errors.Is(err, billing.ErrInvalidStatusFilter):
		return fiber.Map{"error": "invalid_status", "message": err.Error()}
	default:
		return fiber.Map{"error": "invalid_request", "message": err.Error()}
	}
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}
