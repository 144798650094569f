package api

import (
	"context"

	"github.com/tumioparbe/web/internal/model"
)

func (c *Client) GetPendingInvoices(ctx context.Context) (model.Paginated[model.Invoice], error) {
	var out model.Paginated[model.Invoice]
	err := c.get(ctx, "/payments/payments/pending_invoices/", nil, &out)
	return out, err
}

func (c *Client) PayInvoice(ctx context.Context, invoiceID int64) (model.Payment, error) {
	var out model.Payment
	err := c.post(ctx, "/payments/payments/pay_invoice/", map[string]int64{"invoice_id": invoiceID}, &out)
	return out, err
}

func (c *Client) BulkPayInvoices(ctx context.Context, invoiceIDs []int64) ([]model.Payment, error) {
	var out []model.Payment
	err := c.post(ctx, "/payments/payments/bulk_pay_invoices/", map[string][]int64{"invoice_ids": invoiceIDs}, &out)
	return out, err
}

// ExecuteBkashPayment completes a bKash payment after the user approved it.
func (c *Client) ExecuteBkashPayment(ctx context.Context, paymentID string) (model.Payment, error) {
	var out model.Payment
	err := c.post(ctx, "/payments/payments/execute_bkash_payment/", map[string]string{"payment_id": paymentID}, &out)
	return out, err
}

func (c *Client) GetPaymentHistory(ctx context.Context) (model.Paginated[model.Payment], error) {
	var out model.Paginated[model.Payment]
	err := c.get(ctx, "/payments/payments/payment_history/", nil, &out)
	return out, err
}
