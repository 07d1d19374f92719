package api

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"agendaconsole/internal/model"
)

// Plan codes accepted by the checkout endpoint.
var Plans = []string{"basic", "medium", "advanced"}

func validPlan(plan string) bool {
	for _, p := range Plans {
		if p == plan {
			return true
		}
	}
	return false
}

func (c *Client) Checkout(ctx context.Context, plan string, companyID int64) (model.CheckoutResponse, error) {
	var out model.CheckoutResponse
	if !validPlan(plan) {
		return out, fmt.Errorf("unknown plan %q", plan)
	}
	body := map[string]any{"plan": plan, "companyId": companyID}
	if err := c.call(ctx, http.MethodPost, "billing/checkout", nil, body, &out); err != nil {
		return out, err
	}
	if out.URL == "" {
		return out, errors.New("checkout response without url")
	}
	return out, nil
}

func (c *Client) PlanStatus(ctx context.Context) (model.PlanStatus, error) {
	return get[model.PlanStatus](ctx, c, "billing/status")
}

func (c *Client) Usage(ctx context.Context) (model.UsageStats, error) {
	return get[model.UsageStats](ctx, c, "billing/usage")
}

// Invoices lists invoices, optionally for one "YYYY-MM" month.
func (c *Client) Invoices(ctx context.Context, month string) ([]model.Invoice, error) {
	var q url.Values
	if month != "" {
		q = url.Values{"month": {month}}
	}
	return list[model.Invoice](ctx, c, "billing/invoices", q)
}

// Download is a binary answer passed through to the browser.
type Download struct {
	Body        []byte
	ContentType string
	Filename    string
}

func (c *Client) DownloadInvoice(ctx context.Context, invoiceID string) (Download, error) {
	path := "billing/invoices/" + url.PathEscape(invoiceID) + "/download"
	data, header, err := c.send(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return Download{}, err
	}
	d := Download{
		Body:        data,
		ContentType: header.Get("Content-Type"),
		Filename:    "fatura-" + invoiceID + ".pdf",
	}
	if d.ContentType == "" {
		d.ContentType = "application/pdf"
	}
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			d.Filename = name
		}
	}
	return d, nil
}
