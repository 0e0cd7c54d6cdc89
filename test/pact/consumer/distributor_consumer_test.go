//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/book-distribution-api/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type apiError struct {
	status int
	title  string
	detail string
}

func (e apiError) Error() string {
	msg := e.title
	if msg == "" {
		msg = "api error"
	}
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.status)
}

type bookPayload struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
}

type linePayload struct {
	BookID   int64 `json:"book_id"`
	Quantity int64 `json:"quantity"`
}

type operationPayload struct {
	ID         int64         `json:"id"`
	CustomerID int64         `json:"customer_id"`
	Type       string        `json:"type"`
	Status     string        `json:"status"`
	Items      []linePayload `json:"items"`
}

type inventoryPayload struct {
	CustomerID int64         `json:"customer_id"`
	Items      []linePayload `json:"items"`
}

type eligibilityPayload struct {
	CanRequest bool   `json:"can_request"`
	Reason     string `json:"reason"`
}

const (
	reasonPendingOrder   = "Wait for delivery or cancel existing request first"
	reasonReportRequired = "A report since last delivery is required"
)

func TestDistributorPortalContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	problemContentType := matchers.S("application/problem+json")
	bearer := matchers.S("Bearer " + pacttest.CustomerToken)
	book := pacttest.ExampleBookPayload()

	pact.AddInteraction().
		Given(pacttest.StateCatalogBaseline).
		UponReceiving("a request to fetch a book").
		WithRequest("GET", fmt.Sprintf("/api/books/%d", pacttest.ExistingBookID), func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"id":         matchers.Like(book["id"]),
				"title":      matchers.Like(book["title"]),
				"unit_price": matchers.Term("10", `^-?\d+(\.\d+)?$`),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCatalogBaseline).
		UponReceiving("a request for a missing book").
		WithRequest("GET", fmt.Sprintf("/api/books/%d", pacttest.MissingBookID), func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
		}).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCustomerFresh).
		UponReceiving("a first delivery request").
		WithRequest("POST", "/api/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(pacttest.ExampleOrderLines())
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"id":          matchers.Like(1),
				"customer_id": matchers.Like(pacttest.CustomerID),
				"type":        matchers.S("order"),
				"status":      matchers.S("pending"),
				"items": matchers.EachLike(matchers.Map{
					"book_id":  matchers.Like(pacttest.ExistingBookID),
					"quantity": matchers.Like(3),
				}, 1),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCustomerPending).
		UponReceiving("a delivery request while another is pending").
		WithRequest("POST", "/api/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(pacttest.ExampleFollowUpLines())
		}).
		WillRespondWith(http.StatusConflict, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/conflict"),
				"status": matchers.Like(http.StatusConflict),
				"detail": matchers.S(reasonPendingOrder),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCustomerStocked).
		UponReceiving("a request for the customer's inventory").
		WithRequest("GET", "/api/me/inventory", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"customer_id": matchers.Like(pacttest.CustomerID),
				"items": matchers.EachLike(matchers.Map{
					"book_id":  matchers.Like(pacttest.ExistingBookID),
					"quantity": matchers.Like(4),
				}, 1),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCustomerStocked).
		UponReceiving("an eligibility check before any sales report").
		WithRequest("GET", "/api/me/eligibility", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"can_request": matchers.Like(false),
				"reason":      matchers.S(reasonReportRequired),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newPortalClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var fetched bookPayload
		if err := client.call(ctx, http.MethodGet, fmt.Sprintf("/api/books/%d", pacttest.ExistingBookID), nil, &fetched); err != nil {
			return fmt.Errorf("get book: %w", err)
		}
		if fetched.ID != pacttest.ExistingBookID {
			return fmt.Errorf("expected book %d, got %+v", pacttest.ExistingBookID, fetched)
		}

		if err := client.call(ctx, http.MethodGet, fmt.Sprintf("/api/books/%d", pacttest.MissingBookID), nil, nil); !hasStatus(err, http.StatusNotFound) {
			return fmt.Errorf("expected 404 for book %d, got %v", pacttest.MissingBookID, err)
		}

		var created operationPayload
		if err := client.call(ctx, http.MethodPost, "/api/orders", pacttest.ExampleOrderLines(), &created); err != nil {
			return fmt.Errorf("submit order: %w", err)
		}
		if created.ID == 0 || created.Status != "pending" {
			return fmt.Errorf("expected a pending order, got %+v", created)
		}

		err := client.call(ctx, http.MethodPost, "/api/orders", pacttest.ExampleFollowUpLines(), nil)
		if !hasStatus(err, http.StatusConflict) {
			return fmt.Errorf("expected 409 for a second order, got %v", err)
		}

		var inv inventoryPayload
		if err := client.call(ctx, http.MethodGet, "/api/me/inventory", nil, &inv); err != nil {
			return fmt.Errorf("inventory: %w", err)
		}
		if len(inv.Items) == 0 {
			return fmt.Errorf("expected stock lines, got %+v", inv)
		}

		var gate eligibilityPayload
		if err := client.call(ctx, http.MethodGet, "/api/me/eligibility", nil, &gate); err != nil {
			return fmt.Errorf("eligibility: %w", err)
		}
		if gate.CanRequest {
			return fmt.Errorf("expected the gate to be closed")
		}
		return nil
	})
	require.NoError(t, err)
}

func hasStatus(err error, status int) bool {
	apiErr, ok := err.(apiError)
	return ok && apiErr.status == status
}

type portalClient struct {
	baseURL    string
	httpClient *http.Client
}

func newPortalClient(config pactconsumer.MockServerConfig) *portalClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	client := &http.Client{Transport: transport, Timeout: 10 * time.Second}
	return &portalClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: client,
	}
}

func (c *portalClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+pacttest.CustomerToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	status := problem.Status
	if status == 0 {
		status = res.StatusCode
	}
	return apiError{
		status: status,
		title:  problem.Title,
		detail: problem.Detail,
	}
}
