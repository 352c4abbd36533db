package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yourorg/payment-core/internal/adapter"
	"github.com/yourorg/payment-core/internal/circuitbreaker"
	"github.com/yourorg/payment-core/internal/config"
	"github.com/yourorg/payment-core/internal/gateway/sadad"
	"github.com/yourorg/payment-core/internal/gateway/sep"
	"github.com/yourorg/payment-core/internal/money"
	"github.com/yourorg/payment-core/internal/monitor"
	"github.com/yourorg/payment-core/internal/orchestrator"
	"github.com/yourorg/payment-core/internal/order"
	"github.com/yourorg/payment-core/internal/policy"
	"github.com/yourorg/payment-core/internal/reporting"
	"github.com/yourorg/payment-core/internal/transaction"
	"github.com/yourorg/payment-core/internal/validation"
)

// app bundles the wired components behind the HTTP handlers.
type app struct {
	orch         *orchestrator.Orchestrator
	contract     *monitor.ContractMonitor
	transactions transaction.Store
	orders       order.Store
	promRegistry *prometheus.Registry
}

func buildApp(cfg config.Config, adapters *adapter.Registry) (*app, error) {
	contract, err := monitor.NewContractMonitor(monitor.PaymentRequestSchema)
	if err != nil {
		return nil, err
	}
	enforcer, err := policy.NewEnforcer(policy.DefaultRules(cfg.Retry.MaxAttempts))
	if err != nil {
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	transactions := transaction.NewMemoryStore()
	orders := order.NewMemoryStore()
	orch := orchestrator.New(
		adapters,
		transactions,
		orders,
		enforcer,
		circuitbreaker.New(),
		monitor.NewMetrics(promRegistry),
		cfg.Retry,
	)
	return &app{
		orch:         orch,
		contract:     contract,
		transactions: transactions,
		orders:       orders,
		promRegistry: promRegistry,
	}, nil
}

type paymentRequest struct {
	OrderRef   string `json:"order_ref"`
	Provider   string `json:"provider"`
	CardNumber string `json:"card_number"`
	NationalID string `json:"national_id"`
	IBAN       string `json:"iban"`
}

func (a *app) processPayment(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	ok, violations, err := a.contract.Validate(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": monitor.FormatErrors(violations)})
		return
	}

	var req paymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	checks := []struct {
		value    string
		validate func(string) validation.Result
	}{
		{req.CardNumber, validation.ValidateCardNumber},
		{req.NationalID, validation.ValidateNationalID},
		{req.IBAN, validation.ValidateIBAN},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		if res := check.validate(check.value); !res.Valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: " + res.Reason})
			return
		}
	}

	result := a.orch.ProcessPayment(c.Request.Context(), req.OrderRef, transaction.Provider(req.Provider))
	c.JSON(result.ResponseCode, result)
}

func (a *app) refundPayment(c *gin.Context) {
	result := a.orch.RefundPayment(c.Request.Context(), c.Param("orderRef"))
	c.JSON(result.ResponseCode, result)
}

func (a *app) cancelPayment(c *gin.Context) {
	result := a.orch.CancelPayment(c.Request.Context(), c.Param("orderRef"))
	c.JSON(result.ResponseCode, result)
}

func (a *app) retryPayment(c *gin.Context) {
	result := a.orch.RetryPayment(c.Request.Context(), c.Param("orderRef"))
	c.JSON(result.ResponseCode, result)
}

func (a *app) verifyStatus(c *gin.Context) {
	result := a.orch.VerifyStatus(c.Request.Context(), c.Param("orderRef"))
	c.JSON(result.ResponseCode, result)
}

func (a *app) extendAuthorization(c *gin.Context) {
	result := a.orch.ExtendAuthorization(c.Request.Context(), c.Param("orderRef"))
	c.JSON(result.ResponseCode, result)
}

func (a *app) inquire(c *gin.Context) {
	result := a.orch.Inquire(c.Request.Context(), c.Param("orderRef"))
	c.JSON(result.ResponseCode, result)
}

func (a *app) checkDuplicate(c *gin.Context) {
	orderRef := c.Param("orderRef")
	dup, err := a.orch.IsDuplicateTransaction(orderRef)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_ref": orderRef, "duplicate": dup})
}

type annotationRequest struct {
	Reason string `json:"reason"`
}

func (a *app) annotate(tag func(orderRef, reason string) (transaction.Transaction, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderRef := c.Param("orderRef")
		var req annotationRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
				return
			}
		}
		tx, err := tag(orderRef, req.Reason)
		if errors.Is(err, orchestrator.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no payment for order " + orderRef})
			return
		}
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order_ref":  orderRef,
			"status":     tx.Status,
			"annotation": tx.Annotation,
		})
	}
}

type orderRequest struct {
	OrderRef    string       `json:"order_ref" binding:"required"`
	CustomerID  string       `json:"customer_id"`
	TotalAmount money.Amount `json:"total_amount"`
}

func (a *app) createOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if !req.TotalAmount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: total_amount must be positive"})
		return
	}
	if err := a.orders.Save(order.Order{
		OrderRef:    req.OrderRef,
		CustomerID:  req.CustomerID,
		TotalAmount: req.TotalAmount,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_ref": req.OrderRef})
}

func (a *app) getOrder(c *gin.Context) {
	orderRef := c.Param("orderRef")
	ord, err := a.orders.FindByOrderRef(orderRef)
	if errors.Is(err, order.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order " + orderRef + " not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_ref":    ord.OrderRef,
		"customer_id":  ord.CustomerID,
		"total_amount": ord.TotalAmount,
		"paid":         ord.Paid,
	})
}

func (a *app) retrospective(c *gin.Context) {
	c.JSON(http.StatusOK, reporting.Generate(a.transactions.All()))
}

func newRouter(a *app) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("payment-core"))

	router.POST("/orders", a.createOrder)
	router.GET("/orders/:orderRef", a.getOrder)

	router.POST("/payments", a.processPayment)
	router.POST("/payments/:orderRef/refund", a.refundPayment)
	router.POST("/payments/:orderRef/cancel", a.cancelPayment)
	router.POST("/payments/:orderRef/retry", a.retryPayment)
	router.POST("/payments/:orderRef/extend", a.extendAuthorization)
	router.GET("/payments/:orderRef/status", a.verifyStatus)
	router.GET("/payments/:orderRef/inquiry", a.inquire)
	router.GET("/payments/:orderRef/duplicate", a.checkDuplicate)
	router.POST("/payments/:orderRef/dispute", a.annotate(a.orch.MarkDisputed))
	router.POST("/payments/:orderRef/suspicious", a.annotate(a.orch.FlagSuspicious))
	router.POST("/payments/:orderRef/escalate", a.annotate(a.orch.Escalate))

	router.GET("/reports/retrospective", a.retrospective)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func initTracing() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdown, err := initTracing()
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	var adapters []adapter.ProviderAdapter
	if pc, ok := cfg.Provider(config.ProviderSadad); ok && pc.Enabled() {
		adapters = append(adapters, adapter.NewSadad(sadad.NewClient(pc, cfg.ConnectTimeout, cfg.ReadTimeout)))
	}
	if pc, ok := cfg.Provider(config.ProviderSep); ok && pc.Enabled() {
		adapters = append(adapters, adapter.NewSep(sep.NewClient(pc, cfg.ConnectTimeout, cfg.ReadTimeout)))
	}
	if len(adapters) == 0 {
		log.Fatal("No payment providers configured")
	}

	a, err := buildApp(cfg, adapter.NewRegistry(adapters...))
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	log.Printf("Starting payment server on %s", cfg.ListenAddr)
	if err := newRouter(a).Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
