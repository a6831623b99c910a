package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
)

type handlers struct {
	remote gateway.Gateway
}

// bind parses and validates the JSON body into T.
func bind[T any](c *fiber.Ctx) (T, error) {
	var in T
	if err := c.BodyParser(&in); err != nil {
		return in, ledger.Validation("parse body", err.Error())
	}
	if err := validate.Struct(in); err != nil {
		return in, ledger.Validation("validate body", err.Error())
	}
	return in, nil
}

func (h *handlers) listCustomers(c *fiber.Ctx) error {
	list, err := h.remote.ListCustomers(c.UserContext())
	if err != nil {
		return fail(c, "list customers", err)
	}
	out := make([]gateway.CustomerDTO, 0, len(list))
	for _, cust := range list {
		out = append(out, gateway.NewCustomerDTO(cust))
	}
	return c.JSON(out)
}

func (h *handlers) createCustomer(c *fiber.Ctx) error {
	in, err := bind[ledger.CustomerFields](c)
	if err == nil {
		in, err = in.Validate()
	}
	if err != nil {
		return fail(c, "create customer", err)
	}
	created, err := h.remote.CreateCustomer(c.UserContext(), in)
	if err != nil {
		return fail(c, "create customer", err)
	}
	return c.Status(fiber.StatusCreated).JSON(gateway.NewCustomerDTO(created))
}

func (h *handlers) updateCustomer(c *fiber.Ctx) error {
	in, err := bind[ledger.CustomerFields](c)
	if err == nil {
		in, err = in.Validate()
	}
	if err != nil {
		return fail(c, "update customer", err)
	}
	updated, err := h.remote.UpdateCustomer(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return fail(c, "update customer", err)
	}
	return c.JSON(gateway.NewCustomerDTO(updated))
}

func (h *handlers) deleteCustomer(c *fiber.Ctx) error {
	if err := h.remote.DeleteCustomer(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, "delete customer", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) listTransactions(c *fiber.Ctx) error {
	txs, err := h.remote.ListTransactions(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, "list transactions", err)
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	return c.JSON(txs)
}

func (h *handlers) createTransaction(c *fiber.Ctx) error {
	in, err := bind[gateway.TransactionRequest](c)
	if err != nil {
		return fail(c, "create transaction", err)
	}
	nt := ledger.NewTransaction{
		CustomerID:  c.Params("id"),
		Kind:        in.Kind,
		Amount:      in.Amount,
		Description: in.Description,
	}
	if err := nt.Validate(); err != nil {
		return fail(c, "create transaction", err)
	}
	created, err := h.remote.CreateTransaction(c.UserContext(), nt)
	if err != nil {
		return fail(c, "create transaction", err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *handlers) deleteTransaction(c *fiber.Ctx) error {
	if err := h.remote.DeleteTransaction(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, "delete transaction", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) authenticate(c *fiber.Ctx) error {
	in, err := bind[gateway.AuthRequest](c)
	if err != nil {
		return fail(c, "authenticate", err)
	}
	ok, err := h.remote.Authenticate(c.UserContext(), in.PIN)
	if err != nil {
		return fail(c, "authenticate", err)
	}
	return c.JSON(gateway.AuthResponse{OK: ok})
}
