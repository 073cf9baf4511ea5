package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
)

// Order is what the processor hands back for a new deposit: the id we store
// as the transaction's external reference and the URL the user approves at.
type Order struct {
	OrderID     string `json:"order_id"`
	ApprovalURL string `json:"approval_url"`
}

// Processor creates payment orders with the third-party processor. The
// matching confirmation arrives later on the payment webhook.
type Processor struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
}

func NewProcessor(baseURL, clientID, secret string) *Processor {
	return &Processor{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		secret:     secret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type createOrderRequest struct {
	UserID   uuid.UUID       `json:"user_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// CreateOrder registers a deposit intent with the processor. Missing
// credentials or a non-2xx response surface as a typed dependency failure,
// never a silent no-op.
func (p *Processor) CreateOrder(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string) (*Order, error) {
	const op = "payment.CreateOrder"

	if p.clientID == "" || p.secret == "" {
		return nil, errors.NewExternalDependency(op, "payment processor",
			fmt.Errorf("processor credentials not configured"))
	}

	body, err := json.Marshal(createOrderRequest{
		UserID:   userID,
		Amount:   amount,
		Currency: strings.ToUpper(currency),
	})
	if err != nil {
		return nil, errors.NewInternal(op, err)
	}

	url := p.baseURL + "/v2/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternal(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.clientID, p.secret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewExternalDependency(op, "payment processor", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewExternalDependency(op, "payment processor",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, errors.NewExternalDependency(op, "payment processor", err)
	}
	if order.OrderID == "" {
		return nil, errors.NewExternalDependency(op, "payment processor",
			fmt.Errorf("order response missing order id"))
	}
	return &order, nil
}
