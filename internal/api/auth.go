package api

import (
	"context"
	"net/http"

	"github.com/tumioparbe/web/internal/model"
)

// OTPRequest is the backend reply to an OTP send
type OTPRequest struct {
	Success bool `json:"success"`
	// ExpiresIn is the OTP lifetime in seconds, 0 when the backend omits it
	ExpiresIn int `json:"expires_in"`
}

type phoneBody struct {
	Phone string `json:"phone"`
}

// Login exchanges phone and password for a token pair.
func (c *Client) Login(ctx context.Context, phone, password string) (model.TokenPair, error) {
	var pair model.TokenPair
	err := c.post(ctx, "/accounts/token/", map[string]string{"phone": phone, "password": password}, &pair)
	return pair, err
}

func (c *Client) RequestOTP(ctx context.Context, phone string) (OTPRequest, error) {
	var out OTPRequest
	err := c.post(ctx, "/accounts/request-otp/", phoneBody{Phone: phone}, &out)
	return out, err
}

// VerifyOTP reports whether the backend accepted the code for phone.
func (c *Client) VerifyOTP(ctx context.Context, phone, otp string) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	err := c.post(ctx, "/accounts/verify-otp/", map[string]string{"phone": phone, "otp": otp}, &out)
	return out.Success, err
}

func (c *Client) Register(ctx context.Context, req model.RegistrationRequest) (model.RegistrationResponse, error) {
	var out model.RegistrationResponse
	err := c.post(ctx, "/accounts/register/", req, &out)
	return out, err
}

// RefreshToken trades a refresh token for a new access token. It is sent
// without a bearer token and is never itself retried.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      refreshPath,
		body:      map[string]string{"refresh": refresh},
		out:       &out,
		anonymous: true,
	})
	if err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", ErrNoAccessToken
	}
	return out.Access, nil
}

// CheckSMSQuota returns the number of SMS messages left on the account.
func (c *Client) CheckSMSQuota(ctx context.Context) (int, error) {
	var out struct {
		Remaining int `json:"remaining"`
	}
	if err := c.get(ctx, "/accounts/sms-quota/", nil, &out); err != nil {
		return 0, err
	}
	return out.Remaining, nil
}
