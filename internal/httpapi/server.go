// Package httpapi serves a gateway.Gateway over REST.
//
// Routes mirror the client in gateway.HTTP:
//
//	GET    /api/customers                   list with transactions
//	POST   /api/customers                   create
//	PUT    /api/customers/:id               update
//	DELETE /api/customers/:id               delete (cascade)
//	GET    /api/customers/:id/transactions  history, newest first
//	POST   /api/customers/:id/transactions  record GAVE/RECEIVED
//	DELETE /api/transactions/:id            delete one entry
//	POST   /api/auth                        check the PIN
//
// Errors are RFC 9457 problem details.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
)

// Server options.
type options struct {
	rateMax    int
	rateWindow time.Duration
}

// Option configures New.
type Option func(*options)

// WithRateLimit caps requests per client IP. n <= 0 disables the limiter.
func WithRateLimit(n int, window time.Duration) Option {
	return func(o *options) {
		o.rateMax = n
		o.rateWindow = window
	}
}

// DefaultRateLimit is requests per second per IP.
const DefaultRateLimit = 50

var validate = validator.New()

// New builds the fiber app over remote.
func New(remote gateway.Gateway, opts ...Option) *fiber.App {
	o := options{rateMax: DefaultRateLimit, rateWindow: time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	app := fiber.New(fiber.Config{
		AppName:               "khata",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
			return problem(c, status, err.Error())
		},
	})

	app.Use(recover.New())
	app.Use(requestLog)
	if o.rateMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        o.rateMax,
			Expiration: o.rateWindow,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return problem(c, fiber.StatusTooManyRequests, "rate limit exceeded")
			},
		}))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	h := &handlers{remote: remote}
	api := app.Group("/api")
	api.Get("/customers", h.listCustomers)
	api.Post("/customers", h.createCustomer)
	api.Put("/customers/:id", h.updateCustomer)
	api.Delete("/customers/:id", h.deleteCustomer)
	api.Get("/customers/:id/transactions", h.listTransactions)
	api.Post("/customers/:id/transactions", h.createTransaction)
	api.Delete("/transactions/:id", h.deleteTransaction)
	api.Post("/auth", h.authenticate)

	return app
}

// Serve runs app on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()
	slog.Info("serving", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		return app.ShutdownWithTimeout(5 * time.Second)
	}
}

func requestLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	slog.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"elapsed", time.Since(start))
	return err
}

// problem writes an RFC 9457 body.
func problem(c *fiber.Ctx, status int, detail string) error {
	p := gateway.Problem{
		Type:     "about:blank",
		Title:    statusTitle(status),
		Status:   status,
		Detail:   detail,
		Instance: c.OriginalURL(),
	}
	return c.Status(status).JSON(p, gateway.ProblemContentType)
}

func statusTitle(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "Validation failed"
	case fiber.StatusNotFound:
		return "Not found"
	case fiber.StatusConflict:
		return "Delete refused"
	case fiber.StatusPreconditionFailed:
		return "No PIN configured"
	case fiber.StatusTooManyRequests:
		return "Too many requests"
	default:
		return "Internal server error"
	}
}

// errorStatus maps gateway errors to HTTP statuses. The client maps them
// back in gateway.statusError.
func errorStatus(err error) int {
	switch {
	case ledger.IsValidation(err):
		return fiber.StatusBadRequest
	case ledger.IsNotFound(err):
		return fiber.StatusNotFound
	case errors.Is(err, gateway.ErrDeleteRefused):
		return fiber.StatusConflict
	case errors.Is(err, gateway.ErrNoPIN):
		return fiber.StatusPreconditionFailed
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, op string, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "op", op, "error", err)
	}
	detail := err.Error()
	var le *ledger.Error
	if errors.As(err, &le) && le.Message != "" {
		detail = le.Message
	}
	return problem(c, status, detail)
}
