package pigateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ErrRejected возвращается, когда шлюз отклонил операцию. Оборачивает текст
// ошибки из ответа шлюза; локальное состояние при этом меняться не должно.
type ErrRejected struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("gateway rejected %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Client — клиент HTTP API платёжного шлюза.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client

	transferRetries  int
	transferRetryGap time.Duration
}

// NewClient создаёт новый клиент шлюза с явным таймаутом запросов.
func NewClient(apiURL, apiKey string, timeout time.Duration, transferRetries int, transferRetryGap time.Duration) *Client {
	if transferRetries < 1 {
		transferRetries = 1
	}
	return &Client{
		apiURL:           apiURL,
		apiKey:           apiKey,
		httpClient:       &http.Client{Timeout: timeout},
		transferRetries:  transferRetries,
		transferRetryGap: transferRetryGap,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &ErrRejected{Op: op, StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

// Approve одобряет платёж на стороне шлюза.
func (c *Client) Approve(ctx context.Context, paymentID string) (*PaymentResponse, error) {
	const op = "pigateway.Approve"
	req, err := c.newRequest(ctx, http.MethodPost, "/payments/"+paymentID+"/approve", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var payment PaymentResponse
	if err := c.do(req, op, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Complete завершает платёж, подтверждая расчёт идентификатором транзакции.
func (c *Client) Complete(ctx context.Context, paymentID, txid string) (*PaymentResponse, error) {
	const op = "pigateway.Complete"
	req, err := c.newRequest(ctx, http.MethodPost, "/payments/"+paymentID+"/complete", CompleteRequest{Txid: txid})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var payment PaymentResponse
	if err := c.do(req, op, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Refund запрашивает возврат платежа.
func (c *Client) Refund(ctx context.Context, paymentID, refundTxid string) (*PaymentResponse, error) {
	const op = "pigateway.Refund"
	req, err := c.newRequest(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", RefundRequest{RefundTxid: refundTxid})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var payment PaymentResponse
	if err := c.do(req, op, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Transfer переводит средства на кошелёк получателя. Запрос повторяется
// ограниченное число раз с одним и тем же идемпотентным ключом, поэтому
// повтор после сетевой ошибки не приводит к двойной выплате.
func (c *Client) Transfer(ctx context.Context, reqParams TransferRequest, idempotencyKey string) (*TransferResponse, error) {
	const op = "pigateway.Transfer"

	var lastErr error
	for attempt := 0; attempt < c.transferRetries; attempt++ {
		req, err := c.newRequest(ctx, http.MethodPost, "/transfers", reqParams)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		req.Header.Set("Idempotency-Key", idempotencyKey)

		var transfer TransferResponse
		err = c.do(req, op, &transfer)
		if err == nil {
			return &transfer, nil
		}
		lastErr = err

		// Отказ шлюза не ретраим: решение принято на его стороне.
		if _, rejected := err.(*ErrRejected); rejected {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(c.transferRetryGap):
		}
	}
	return nil, lastErr
}
