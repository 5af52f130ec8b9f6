package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lending/core"
	"lending/handler/views"
	"lending/pkg/id"
	"lending/pkg/lending"
	"lending/pkg/number"
	"lending/pkg/ratelimiter"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	headerKeyRequestID = "X-Request-Id"
	headerKeyAdmin     = "X-Admin-Id"
)

// Error api error response
type Error struct {
	Status int    `json:"-"`
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("status %d, code %d: %s", e.Status, e.Code, e.Msg)
}

// Unwrap the engine error the code stands for, so errors.Is works across the api
func (e *Error) Unwrap() error {
	return core.ErrorOf(core.ErrorCode(e.Code))
}

// Client lending rest api client
type Client struct {
	c     *resty.Client
	admin string
}

// New new client of the api served at endpoint, eg http://localhost:7778/api
func New(endpoint string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(endpoint, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Charset", "utf-8").
		SetTimeout(10 * time.Second)

	return &Client{c: c}
}

// WithAdmin copy of the client sending admin id on every request
func (c *Client) WithAdmin(adminID string) *Client {
	return &Client{c: c.c, admin: adminID}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.c.R().SetContext(ctx).SetHeader(headerKeyRequestID, id.RequestID(ctx))
	if c.admin != "" {
		r.SetHeader(headerKeyAdmin, c.admin)
	}

	return r
}

// execute do network request
func (c *Client) execute(ctx context.Context, method, url string, body, resp interface{}) error {
	request := c.request(ctx)
	if body != nil {
		request = request.SetBody(body)
	}

	r, err := request.Execute(method, url)
	if err != nil {
		return err
	}

	logrus.WithField("url", url).Debugln("resp.status:", r.Status())
	return parseResponse(r, resp)
}

func parseResponse(r *resty.Response, obj interface{}) error {
	if !r.IsSuccess() {
		e := &Error{Status: r.StatusCode()}
		if err := json.Unmarshal(r.Body(), e); err != nil {
			e.Msg = string(r.Body())
		}

		return e
	}

	if obj == nil {
		return nil
	}

	return json.Unmarshal(r.Body(), obj)
}

// Reserves list reserves
func (c *Client) Reserves(ctx context.Context) ([]*views.Reserve, error) {
	var reserves []*views.Reserve
	err := c.execute(ctx, http.MethodGet, "/reserves", nil, &reserves)
	return reserves, err
}

// Reserve find reserve by id
func (c *Client) Reserve(ctx context.Context, reserveID string) (*views.Reserve, error) {
	var reserve views.Reserve
	if err := c.execute(ctx, http.MethodGet, "/reserves/"+reserveID, nil, &reserve); err != nil {
		return nil, err
	}

	return &reserve, nil
}

// InitReserve create a reserve, admin only
func (c *Client) InitReserve(ctx context.Context, req *core.InitReserveRequest) (*core.Reserve, error) {
	var reserve core.Reserve
	if err := c.execute(ctx, http.MethodPost, "/reserves", req, &reserve); err != nil {
		return nil, err
	}

	return &reserve, nil
}

// RefreshReserve accrue interest and reprice the reserve at the current slot
func (c *Client) RefreshReserve(ctx context.Context, reserveID string) (*core.Reserve, error) {
	var reserve core.Reserve
	if err := c.execute(ctx, http.MethodPost, "/reserves/"+reserveID+"/refresh", struct{}{}, &reserve); err != nil {
		return nil, err
	}

	return &reserve, nil
}

// DepositLiquidity supply amount token units to the reserve
func (c *Client) DepositLiquidity(ctx context.Context, reserveID string, amount uint64) (*core.Reserve, error) {
	var reserve core.Reserve
	body := map[string]interface{}{"amount": amount}
	if err := c.execute(ctx, http.MethodPost, "/reserves/"+reserveID+"/deposit", body, &reserve); err != nil {
		return nil, err
	}

	return &reserve, nil
}

// UpdateReserveConfig replace the reserve config and rate limiter config, admin only
func (c *Client) UpdateReserveConfig(ctx context.Context, reserveID string, cfg core.ReserveConfig, limiter ratelimiter.Config) (*core.Reserve, error) {
	var reserve core.Reserve
	body := map[string]interface{}{"config": cfg, "rate_limiter": limiter}
	if err := c.execute(ctx, http.MethodPut, "/reserves/"+reserveID+"/config", body, &reserve); err != nil {
		return nil, err
	}

	return &reserve, nil
}

// SetPrice publish a price for the reserve at the current slot, admin only
func (c *Client) SetPrice(ctx context.Context, reserveID string, price number.Decimal, source string) (*core.Price, error) {
	var p core.Price
	body := map[string]interface{}{"price": price, "source": source}
	if err := c.execute(ctx, http.MethodPost, "/reserves/"+reserveID+"/price", body, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// Obligations list obligations of owner
func (c *Client) Obligations(ctx context.Context, owner string) ([]*views.Obligation, error) {
	var obligations []*views.Obligation
	err := c.execute(ctx, http.MethodGet, "/obligations?owner="+url.QueryEscape(owner), nil, &obligations)
	return obligations, err
}

// Obligation find obligation by id
func (c *Client) Obligation(ctx context.Context, obligationID string) (*views.Obligation, error) {
	return c.obligation(ctx, http.MethodGet, "/obligations/"+obligationID, nil)
}

// InitObligation open an empty obligation for owner
func (c *Client) InitObligation(ctx context.Context, owner string) (*views.Obligation, error) {
	return c.obligation(ctx, http.MethodPost, "/obligations", map[string]interface{}{"owner": owner})
}

// RefreshObligation revalue the obligation at the current slot
func (c *Client) RefreshObligation(ctx context.Context, obligationID string) (*views.Obligation, error) {
	return c.obligation(ctx, http.MethodPost, "/obligations/"+obligationID+"/refresh", struct{}{})
}

// DepositCollateral add amount of reserve liquidity as collateral
func (c *Client) DepositCollateral(ctx context.Context, obligationID, reserveID string, amount uint64) (*views.Obligation, error) {
	return c.obligation(ctx, http.MethodPost, "/obligations/"+obligationID+"/deposit", amountBody(reserveID, amount))
}

// WithdrawCollateral remove amount of reserve liquidity from the collateral
func (c *Client) WithdrawCollateral(ctx context.Context, obligationID, reserveID string, amount uint64) (*views.Obligation, error) {
	return c.obligation(ctx, http.MethodPost, "/obligations/"+obligationID+"/withdraw", amountBody(reserveID, amount))
}

// Borrow amount of reserve liquidity against the obligation
func (c *Client) Borrow(ctx context.Context, obligationID, reserveID string, amount uint64) (*core.BorrowResult, error) {
	var result core.BorrowResult
	if err := c.execute(ctx, http.MethodPost, "/obligations/"+obligationID+"/borrow", amountBody(reserveID, amount), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Repay up to amount of the obligation debt in reserve
func (c *Client) Repay(ctx context.Context, obligationID, reserveID string, amount uint64) (*core.RepayResult, error) {
	var result core.RepayResult
	if err := c.execute(ctx, http.MethodPost, "/obligations/"+obligationID+"/repay", amountBody(reserveID, amount), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Transactions operation log from offset
func (c *Client) Transactions(ctx context.Context, offset time.Time, limit int) ([]*core.Transaction, error) {
	var transactions []*core.Transaction
	r := c.request(ctx).SetQueryParam("offset", offset.Format(time.RFC3339Nano))
	if limit > 0 {
		r.SetQueryParam("limit", fmt.Sprint(limit))
	}

	resp, err := r.Get("/transactions")
	if err != nil {
		return nil, err
	}

	err = parseResponse(resp, &transactions)
	return transactions, err
}

// Audit rescan the attributed borrow aggregates, admin only
func (c *Client) Audit(ctx context.Context) ([]lending.Divergence, error) {
	var divergences []lending.Divergence
	err := c.execute(ctx, http.MethodGet, "/audit", nil, &divergences)
	return divergences, err
}

func (c *Client) obligation(ctx context.Context, method, url string, body interface{}) (*views.Obligation, error) {
	var obligation views.Obligation
	if err := c.execute(ctx, method, url, body, &obligation); err != nil {
		return nil, err
	}

	return &obligation, nil
}

func amountBody(reserveID string, amount uint64) map[string]interface{} {
	return map[string]interface{}{
		"reserve_id": reserveID,
		"amount":     amount,
	}
}
