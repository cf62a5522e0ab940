package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Source fetches the latest published exchange rates.
type Source interface {
	Latest(ctx context.Context) (*LatestResponse, error)
}

// LatestResponse is the payload of an open exchange-rate feed.
type LatestResponse struct {
	Result   string                     `json:"result"`
	BaseCode string                     `json:"base_code"`
	Rates    map[string]decimal.Decimal `json:"rates"`
}

type errorResponse struct {
	Result    string `json:"result"`
	ErrorType string `json:"error-type"`
}

// APIClient is a resty-backed implementation of Source.
type APIClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a client for the feed at url, e.g. https://open.er-api.com/v6/latest/INR.
func NewClient(url string) *APIClient {
	restyClient := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &APIClient{httpClient: restyClient, url: url}
}

// Latest downloads the current table.
func (c *APIClient) Latest(ctx context.Context) (*LatestResponse, error) {
	result := new(LatestResponse)
	apiErr := new(errorResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange rates: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("exchange rate feed error: status=%d, type=%s", resp.StatusCode(), apiErr.ErrorType)
	}
	if result.Result != "" && !strings.EqualFold(result.Result, "success") {
		return nil, fmt.Errorf("exchange rate feed returned %q", result.Result)
	}
	if result.BaseCode == "" || len(result.Rates) == 0 {
		return nil, errors.New("exchange rate feed returned an empty table")
	}

	result.BaseCode = strings.ToUpper(result.BaseCode)
	return result, nil
}
