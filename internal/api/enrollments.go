package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tumioparbe/web/internal/model"
)

// EnrollmentFilter narrows GetEnrollments. Zero values are not sent.
type EnrollmentFilter struct {
	Student  int64
	IsActive *bool
}

// Coupon is the result of a coupon check
type Coupon struct {
	Valid    bool    `json:"valid"`
	Discount float64 `json:"discount"`
}

func (c *Client) InitiateEnrollment(ctx context.Context, req model.EnrollmentInitiateRequest) (model.Enrollment, error) {
	var out model.Enrollment
	err := c.post(ctx, "/enrollments/enrollments/initiate/", req, &out)
	return out, err
}

func (c *Client) InitiatePayment(ctx context.Context, req model.EnrollmentPaymentRequest) (model.Payment, error) {
	var out model.Payment
	err := c.post(ctx, "/enrollments/enrollments/initiate_payment/", req, &out)
	return out, err
}

func (c *Client) VerifyAndCompletePayment(ctx context.Context, paymentID string) (model.Payment, error) {
	var out model.Payment
	err := c.post(ctx, "/enrollments/enrollments/verify_and_complete_payment/",
		map[string]string{"payment_id": paymentID}, &out)
	return out, err
}

func (c *Client) GetEnrollments(ctx context.Context, f EnrollmentFilter) (model.Paginated[model.Enrollment], error) {
	q := url.Values{}
	setID(q, "student", f.Student)
	setBool(q, "is_active", f.IsActive)

	var out model.Paginated[model.Enrollment]
	err := c.get(ctx, "/enrollments/enrollments/", q, &out)
	return out, err
}

func (c *Client) GetEnrollment(ctx context.Context, id int64) (model.Enrollment, error) {
	var out model.Enrollment
	err := c.get(ctx, "/enrollments/enrollments/"+strconv.FormatInt(id, 10)+"/", nil, &out)
	return out, err
}

// ValidateCoupon checks code, optionally against one batch (batchID 0 skips it).
func (c *Client) ValidateCoupon(ctx context.Context, code string, batchID int64) (Coupon, error) {
	q := url.Values{"code": {code}}
	setID(q, "batch_id", batchID)

	var out Coupon
	err := c.get(ctx, "/enrollments/coupons/validate/", q, &out)
	return out, err
}
