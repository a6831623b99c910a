package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/testutil"
)

const testPIN = "1357"

func makeRequest(app *fiber.App, method, path string, body any) *http.Response {
	var r io.Reader
	if body != nil {
		buf, _ := json.Marshal(body)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		panic(err)
	}
	return resp
}

type ServerTestSuite struct {
	suite.Suite
	remote *gateway.Memory
	app    *fiber.App
}

func (s *ServerTestSuite) SetupTest() {
	s.remote = testutil.NewRemote(gateway.WithPIN(testPIN))
	s.app = New(s.remote, WithRateLimit(0, 0))
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) decode(resp *http.Response, out any) {
	defer resp.Body.Close() //nolint: errcheck
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

func (s *ServerTestSuite) expectProblem(resp *http.Response, status int) gateway.Problem {
	s.Require().Equal(status, resp.StatusCode)
	s.Assert().Equal(gateway.ProblemContentType, resp.Header.Get(fiber.HeaderContentType))
	var p gateway.Problem
	s.decode(resp, &p)
	s.Assert().Equal(status, p.Status)
	return p
}

func (s *ServerTestSuite) createCustomer(name string) gateway.CustomerDTO {
	resp := makeRequest(s.app, http.MethodPost, "/api/customers", ledger.CustomerFields{Name: name})
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	var dto gateway.CustomerDTO
	s.decode(resp, &dto)
	return dto
}

func (s *ServerTestSuite) TestHealth() {
	resp := makeRequest(s.app, http.MethodGet, "/healthz", nil)
	s.Assert().Equal(fiber.StatusOK, resp.StatusCode)
}

func (s *ServerTestSuite) TestCreateCustomer() {
	s.Run("created", func() {
		dto := s.createCustomer("  Rahul Sharma ")
		s.Assert().Equal("c-1", dto.ID)
		s.Assert().Equal("Rahul Sharma", dto.Name)
		s.Assert().True(dto.Balance.IsZero())
		s.Assert().Empty(dto.Transactions)
	})

	s.Run("blank name", func() {
		resp := makeRequest(s.app, http.MethodPost, "/api/customers", ledger.CustomerFields{Name: "   "})
		p := s.expectProblem(resp, fiber.StatusBadRequest)
		s.Assert().Equal("name is required", p.Detail)
	})

	s.Run("not json", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/customers", bytes.NewBufferString("name=x"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := s.app.Test(req, -1)
		s.Require().NoError(err)
		s.expectProblem(resp, fiber.StatusBadRequest)
	})
}

func (s *ServerTestSuite) TestUpdateCustomer() {
	c := s.createCustomer("Rahul")

	resp := makeRequest(s.app, http.MethodPut, "/api/customers/"+c.ID, ledger.CustomerFields{Name: "Rahul Sharma", City: "Pune"})
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var dto gateway.CustomerDTO
	s.decode(resp, &dto)
	s.Assert().Equal("Pune", dto.City)

	resp = makeRequest(s.app, http.MethodPut, "/api/customers/c-404", ledger.CustomerFields{Name: "Nobody"})
	s.expectProblem(resp, fiber.StatusNotFound)
}

func (s *ServerTestSuite) TestTransactionsAndBalance() {
	c := s.createCustomer("Rahul")
	path := "/api/customers/" + c.ID + "/transactions"

	resp := makeRequest(s.app, http.MethodPost, path, gateway.TransactionRequest{Kind: ledger.Gave, Amount: decimal.NewFromInt(500)})
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	resp = makeRequest(s.app, http.MethodPost, path, gateway.TransactionRequest{Kind: ledger.Received, Amount: decimal.NewFromInt(200), Description: "cash"})
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	var received ledger.Transaction
	s.decode(resp, &received)

	resp = makeRequest(s.app, http.MethodGet, path, nil)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var history []ledger.Transaction
	s.decode(resp, &history)
	s.Require().Len(history, 2)
	s.Assert().Equal(received.ID, history[0].ID)

	resp = makeRequest(s.app, http.MethodGet, "/api/customers", nil)
	var list []gateway.CustomerDTO
	s.decode(resp, &list)
	s.Require().Len(list, 1)
	s.Assert().True(list[0].Balance.Equal(decimal.NewFromInt(300)))

	resp = makeRequest(s.app, http.MethodDelete, "/api/transactions/"+received.ID, nil)
	s.Assert().Equal(fiber.StatusNoContent, resp.StatusCode)
	resp = makeRequest(s.app, http.MethodDelete, "/api/transactions/"+received.ID, nil)
	s.expectProblem(resp, fiber.StatusNotFound)
}

func (s *ServerTestSuite) TestCreateTransactionRejects() {
	c := s.createCustomer("Rahul")
	path := "/api/customers/" + c.ID + "/transactions"

	tests := []struct {
		name   string
		path   string
		body   gateway.TransactionRequest
		status int
	}{
		{"unknown kind", path, gateway.TransactionRequest{Kind: "LENT", Amount: decimal.NewFromInt(1)}, fiber.StatusBadRequest},
		{"zero amount", path, gateway.TransactionRequest{Kind: ledger.Gave, Amount: decimal.Zero}, fiber.StatusBadRequest},
		{"negative amount", path, gateway.TransactionRequest{Kind: ledger.Gave, Amount: decimal.NewFromInt(-5)}, fiber.StatusBadRequest},
		{"unknown customer", "/api/customers/c-404/transactions", gateway.TransactionRequest{Kind: ledger.Gave, Amount: decimal.NewFromInt(5)}, fiber.StatusNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp := makeRequest(s.app, http.MethodPost, tt.path, tt.body)
			s.expectProblem(resp, tt.status)
		})
	}
	s.Assert().True(s.remote.Balance(c.ID).IsZero())
}

func (s *ServerTestSuite) TestDeleteCustomer() {
	c := s.createCustomer("Rahul")

	resp := makeRequest(s.app, http.MethodDelete, "/api/customers/"+c.ID, nil)
	s.Assert().Equal(fiber.StatusNoContent, resp.StatusCode)

	resp = makeRequest(s.app, http.MethodDelete, "/api/customers/"+c.ID, nil)
	s.expectProblem(resp, fiber.StatusNotFound)

	resp = makeRequest(s.app, http.MethodGet, "/api/customers/"+c.ID+"/transactions", nil)
	s.expectProblem(resp, fiber.StatusNotFound)
}

func (s *ServerTestSuite) TestStrictDeleteRefused() {
	remote := testutil.NewRemote(gateway.WithStrictDelete(true))
	app := New(remote, WithRateLimit(0, 0))
	ctx := context.Background()
	c, err := remote.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul"})
	s.Require().NoError(err)
	_, err = remote.CreateTransaction(ctx, ledger.NewTransaction{CustomerID: c.ID, Kind: ledger.Gave, Amount: decimal.NewFromInt(10)})
	s.Require().NoError(err)

	resp := makeRequest(app, http.MethodDelete, "/api/customers/"+c.ID, nil)
	s.expectProblem(resp, fiber.StatusConflict)
}

func (s *ServerTestSuite) TestAuthenticate() {
	var out gateway.AuthResponse

	resp := makeRequest(s.app, http.MethodPost, "/api/auth", gateway.AuthRequest{PIN: testPIN})
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.decode(resp, &out)
	s.Assert().True(out.OK)

	resp = makeRequest(s.app, http.MethodPost, "/api/auth", gateway.AuthRequest{PIN: "0000"})
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.decode(resp, &out)
	s.Assert().False(out.OK)

	resp = makeRequest(s.app, http.MethodPost, "/api/auth", gateway.AuthRequest{})
	s.expectProblem(resp, fiber.StatusBadRequest)

	noPIN := New(testutil.NewRemote(), WithRateLimit(0, 0))
	resp = makeRequest(noPIN, http.MethodPost, "/api/auth", gateway.AuthRequest{PIN: "1234"})
	s.expectProblem(resp, fiber.StatusPreconditionFailed)
}

func (s *ServerTestSuite) TestUnknownRoute() {
	resp := makeRequest(s.app, http.MethodGet, "/api/nothing", nil)
	s.expectProblem(resp, fiber.StatusNotFound)
}

func (s *ServerTestSuite) TestRateLimit() {
	app := New(s.remote, WithRateLimit(2, time.Minute))
	for i := 0; i < 2; i++ {
		resp := makeRequest(app, http.MethodGet, "/api/customers", nil)
		s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	}
	resp := makeRequest(app, http.MethodGet, "/api/customers", nil)
	s.expectProblem(resp, fiber.StatusTooManyRequests)
}

// panicky fails loudly on list.
type panicky struct{ gateway.Gateway }

func (panicky) ListCustomers(context.Context) ([]ledger.Customer, error) {
	panic("boom")
}

func (s *ServerTestSuite) TestRecoverFromPanic() {
	app := New(panicky{s.remote}, WithRateLimit(0, 0))
	resp := makeRequest(app, http.MethodGet, "/api/customers", nil)
	s.expectProblem(resp, fiber.StatusInternalServerError)
}
