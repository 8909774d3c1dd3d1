package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"registration-bot/internal/apperr"
)

const (
	DefaultBaseURL = "https://api.airtable.com/v0"
	serviceName    = "airtable"
)

// Client talks to one base of the tabular store. It knows table and field
// ids only; mapping years and logical field names is the caller's job.
type Client struct {
	http    *resty.Client
	baseID  string
	limiter *rate.Limiter
	logger  *slog.Logger
	onError func(*apperr.RemoteError)
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.http.SetBaseURL(u) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithRateLimit caps requests per second against the base. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithErrorHook is called for every remote failure, e.g. to count it.
func WithErrorHook(fn func(*apperr.RemoteError)) Option {
	return func(c *Client) { c.onError = fn }
}

func New(apiKey, baseID string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(DefaultBaseURL).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(15 * time.Second),
		baseID:  baseID,
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type FindOptions struct {
	MaxRecords int
	View       string
}

type recordList struct {
	Records []Record `json:"records"`
}

// Find lists records of table matching formula. MaxRecords defaults to 1.
func (c *Client) Find(ctx context.Context, table string, formula Formula, opts FindOptions) ([]Record, error) {
	limit := opts.MaxRecords
	if limit <= 0 {
		limit = 1
	}
	params := map[string]string{
		"filterByFormula":       string(formula),
		"maxRecords":            strconv.Itoa(limit),
		"returnFieldsByFieldId": "true",
	}
	if opts.View != "" {
		params["view"] = opts.View
	}

	req, err := c.request(ctx, table)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetQueryParams(params).Get("/{base}/{table}")
	if err := c.check(resp, err, "find", table); err != nil {
		return nil, err
	}

	var out recordList
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, c.fail("find", table, &apperr.RemoteError{Service: serviceName, Status: resp.StatusCode(), Body: "malformed response", Err: err})
	}
	return out.Records, nil
}

type writeBody struct {
	Fields                Fields `json:"fields"`
	ReturnFieldsByFieldID bool   `json:"returnFieldsByFieldId"`
}

// Update patches the given fields of one record and returns the record as
// stored afterwards.
func (c *Client) Update(ctx context.Context, table, recordID string, fields Fields) (*Record, error) {
	req, err := c.request(ctx, table)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetPathParam("record", recordID).
		SetBody(writeBody{Fields: fields, ReturnFieldsByFieldID: true}).
		Patch("/{base}/{table}/{record}")
	if err := c.check(resp, err, "update", table); err != nil {
		return nil, err
	}
	return c.decodeRecord(resp, "update", table)
}

func (c *Client) Create(ctx context.Context, table string, fields Fields) (*Record, error) {
	req, err := c.request(ctx, table)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetBody(writeBody{Fields: fields, ReturnFieldsByFieldID: true}).
		Post("/{base}/{table}")
	if err := c.check(resp, err, "create", table); err != nil {
		return nil, err
	}
	return c.decodeRecord(resp, "create", table)
}

// ---------- helpers ----------

func (c *Client) request(ctx context.Context, table string) (*resty.Request, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("airtable: %w", err)
		}
	}
	return c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"base": c.baseID, "table": table}), nil
}

func (c *Client) check(resp *resty.Response, err error, op, table string) error {
	if err != nil {
		re := &apperr.RemoteError{Service: serviceName, Err: err}
		return c.fail(op, table, re)
	}
	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		re := &apperr.RemoteError{Service: serviceName, Status: resp.StatusCode(), Body: resp.String()}
		return c.fail(op, table, re)
	}
	return nil
}

func (c *Client) fail(op, table string, re *apperr.RemoteError) error {
	c.logger.Error("airtable request failed",
		"op", op, "table", table, "status", re.Status, "body", re.Body, "err", re.Err)
	if c.onError != nil {
		c.onError(re)
	}
	return re
}

func (c *Client) decodeRecord(resp *resty.Response, op, table string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(resp.Body(), &rec); err != nil {
		return nil, c.fail(op, table, &apperr.RemoteError{Service: serviceName, Status: resp.StatusCode(), Body: "malformed response", Err: err})
	}
	return &rec, nil
}
