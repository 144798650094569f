// Package registration drives the three-step sign-up: phone number, OTP
// verification, then the profile form. Progress lives in the browser's
// client storage so a reload resumes the current step.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tumioparbe/web/internal/api"
	"github.com/tumioparbe/web/internal/metrics"
	"github.com/tumioparbe/web/internal/model"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/session"
	"github.com/tumioparbe/web/internal/storage"
)

// StorageKey holds the JSON State of an unfinished registration
const StorageKey = "registration"

type Step int

const (
	StepPhone Step = iota + 1
	StepOTP
	StepProfile
)

var (
	ErrWrongStep      = errors.New("registration: action not allowed at this step")
	ErrResendCooldown = errors.New("registration: resend not available yet")
	ErrOTPExpired     = errors.New("registration: code expired")
	ErrOTPRejected    = errors.New("registration: code rejected")
	ErrRejected       = errors.New("registration: rejected by backend")
)

// Backend is the part of the platform API the flow needs
type Backend interface {
	RequestOTP(ctx context.Context, phone string) (api.OTPRequest, error)
	VerifyOTP(ctx context.Context, phone, otp string) (bool, error)
	Register(ctx context.Context, req model.RegistrationRequest) (model.RegistrationResponse, error)
}

// State is the persisted progress
type State struct {
	Step     Step      `json:"step"`
	Phone    string    `json:"phone,omitempty"`
	ResendAt time.Time `json:"resend_at"`
	// ExpiresAt is when the last sent OTP stops being accepted
	ExpiresAt time.Time `json:"expires_at"`
}

type Config struct {
	ResendCooldown time.Duration
	DefaultOTPTTL  time.Duration
}

var DefaultConfig = Config{
	ResendCooldown: 60 * time.Second,
	DefaultOTPTTL:  5 * time.Minute,
}

// Flow is bound to one browser. Every failing action leaves the stored
// State untouched.
type Flow struct {
	st      storage.Storage
	backend Backend
	sess    *session.Store
	cfg     Config
	metrics *metrics.Metrics
	limit   func(phone string) error
	now     func() time.Time
}

func NewFlow(st storage.Storage, backend Backend, sess *session.Store, cfg Config, m *metrics.Metrics) *Flow {
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = DefaultConfig.ResendCooldown
	}
	if cfg.DefaultOTPTTL <= 0 {
		cfg.DefaultOTPTTL = DefaultConfig.DefaultOTPTTL
	}
	return &Flow{st: st, backend: backend, sess: sess, cfg: cfg, metrics: m, now: time.Now}
}

// WithSendLimit installs a check run right before each OTP send, after the
// step, phone and cooldown checks have passed. Its error aborts the step.
func (f *Flow) WithSendLimit(limit func(phone string) error) *Flow {
	f.limit = limit
	return f
}

// State returns the stored progress, a fresh step-one State when there is
// none or it cannot be read.
func (f *Flow) State(ctx context.Context) State {
	var s State
	err := storage.GetJSON(ctx, f.st, StorageKey, &s)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logctx.From(ctx).Debug("registration_state_load_failed", slog.String("err", err.Error()))
		}
		return State{Step: StepPhone}
	}
	if s.Step < StepPhone || s.Step > StepProfile || (s.Step > StepPhone && s.Phone == "") {
		return State{Step: StepPhone}
	}
	return s
}

// SubmitPhone validates the number, asks the backend to send an OTP and
// moves to the OTP step.
func (f *Flow) SubmitPhone(ctx context.Context, phone string) (State, error) {
	cur := f.State(ctx)
	if cur.Step != StepPhone {
		return cur, ErrWrongStep
	}

	phone = strings.TrimSpace(phone)
	if err := ValidatePhone(phone); err != nil {
		return cur, err
	}

	next, err := f.sendOTP(ctx, "request", phone)
	if err != nil {
		return cur, err
	}
	next.Step = StepOTP
	if err := f.save(ctx, next); err != nil {
		return cur, err
	}
	return next, nil
}

// Resend requests a new OTP once the cooldown has passed.
func (f *Flow) Resend(ctx context.Context) (State, error) {
	cur := f.State(ctx)
	if cur.Step != StepOTP {
		return cur, ErrWrongStep
	}
	if f.now().Before(cur.ResendAt) {
		return cur, ErrResendCooldown
	}

	next, err := f.sendOTP(ctx, "resend", cur.Phone)
	if err != nil {
		return cur, err
	}
	next.Step = StepOTP
	if err := f.save(ctx, next); err != nil {
		return cur, err
	}
	return next, nil
}

// ChangePhone abandons the OTP step and returns to the phone form.
func (f *Flow) ChangePhone(ctx context.Context) (State, error) {
	cur := f.State(ctx)
	if cur.Step != StepOTP {
		return cur, ErrWrongStep
	}
	next := State{Step: StepPhone}
	if err := f.save(ctx, next); err != nil {
		return cur, err
	}
	return next, nil
}

// VerifyOTP checks the code with the backend and moves to the profile step.
func (f *Flow) VerifyOTP(ctx context.Context, code string) (State, error) {
	cur := f.State(ctx)
	if cur.Step != StepOTP {
		return cur, ErrWrongStep
	}

	code = strings.TrimSpace(code)
	if err := ValidateOTP(code); err != nil {
		return cur, err
	}
	if !cur.ExpiresAt.IsZero() && !f.now().Before(cur.ExpiresAt) {
		return cur, ErrOTPExpired
	}

	ok, err := f.backend.VerifyOTP(ctx, cur.Phone, code)
	if err != nil {
		return cur, fmt.Errorf("verify otp: %w", err)
	}
	if !ok {
		return cur, ErrOTPRejected
	}

	next := State{Step: StepProfile, Phone: cur.Phone}
	if err := f.save(ctx, next); err != nil {
		return cur, err
	}
	logctx.From(ctx).Info("registration_phone_verified", slog.String("phone", logctx.MaskPhone(cur.Phone)))
	return next, nil
}

// Complete registers the verified phone with the profile, signs the new
// user in and forgets the flow.
func (f *Flow) Complete(ctx context.Context, p Profile) (model.User, error) {
	cur := f.State(ctx)
	if cur.Step != StepProfile {
		return model.User{}, ErrWrongStep
	}

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return model.User{}, err
	}

	resp, err := f.backend.Register(ctx, model.RegistrationRequest{
		Phone:           cur.Phone,
		Name:            p.Name,
		Address:         p.Address,
		FacebookProfile: p.FacebookProfile,
		Email:           p.Email,
		Password:        p.Password,
		ConfirmPassword: p.ConfirmPassword,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	if !resp.Success {
		return model.User{}, ErrRejected
	}

	if err := f.sess.Login(ctx, model.TokenPair{Access: resp.Access, Refresh: resp.Refresh}, resp.User); err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	if err := f.Reset(ctx); err != nil {
		logctx.From(ctx).Warn("registration_reset_failed", slog.String("err", err.Error()))
	}

	logctx.From(ctx).Info("registration_completed",
		slog.Int64("user_id", resp.User.ID),
		slog.String("phone", logctx.MaskPhone(cur.Phone)),
	)
	return resp.User, nil
}

// Reset drops any stored progress.
func (f *Flow) Reset(ctx context.Context) error {
	return f.st.Delete(ctx, StorageKey)
}

func (f *Flow) sendOTP(ctx context.Context, kind, phone string) (State, error) {
	if f.limit != nil {
		if err := f.limit(phone); err != nil {
			return State{}, err
		}
	}

	res, err := f.backend.RequestOTP(ctx, phone)
	f.metrics.OTP(kind, err)
	if err != nil {
		logctx.From(ctx).Info("otp_request_failed",
			slog.String("kind", kind),
			slog.String("phone", logctx.MaskPhone(phone)),
			slog.String("err", err.Error()),
		)
		return State{}, fmt.Errorf("request otp: %w", err)
	}

	ttl := f.cfg.DefaultOTPTTL
	if res.ExpiresIn > 0 {
		ttl = time.Duration(res.ExpiresIn) * time.Second
	}

	now := f.now()
	return State{
		Phone:     phone,
		ResendAt:  now.Add(f.cfg.ResendCooldown),
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (f *Flow) save(ctx context.Context, s State) error {
	if err := storage.SetJSON(ctx, f.st, StorageKey, s); err != nil {
		return fmt.Errorf("save registration: %w", err)
	}
	return nil
}
