package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tumioparbe/web/internal/api"
	"github.com/tumioparbe/web/internal/browser"
	"github.com/tumioparbe/web/internal/guard"
	"github.com/tumioparbe/web/internal/middleware"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/registration"
)

const registerPath = "/register"

// registerData feeds the register template
type registerData struct {
	Step      int
	Phone     string
	ExpiresIn int
	ResendIn  int
}

var errOTPLimited = errors.New("too many codes requested for this number")

func (h *Handler) flow(b *browser.Browser) *registration.Flow {
	return registration.NewFlow(b.Storage, b.API, b.Session, h.registration, h.metrics).WithSendLimit(h.allowOTP)
}

func stateData(s registration.State, now time.Time) registerData {
	d := registerData{Step: int(s.Step), Phone: s.Phone}
	if s.Step == registration.StepOTP {
		d.ExpiresIn = registration.RemainingSeconds(s.ExpiresAt, now)
		d.ResendIn = registration.RemainingSeconds(s.ResendAt, now)
	}
	return d
}

// RegisterPage handles GET /register and shows the current step.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.current(w, r)
	if !ok {
		return
	}
	p := h.page(r, b, "Register")
	p.Data = stateData(h.flow(b).State(r.Context()), time.Now())
	h.render(w, r, http.StatusOK, "register", p)
}

// Register handles POST /register for whichever step the form names.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	b, ok := h.current(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	flow := h.flow(b)

	switch r.PostFormValue("step") {
	case "phone":
		phone := strings.TrimSpace(r.PostFormValue("phone"))
		if _, err := flow.SubmitPhone(ctx, phone); err != nil {
			h.registerFailed(w, r, b, flow, err, "Failed to send OTP", map[string]string{"phone": phone})
			return
		}
		b.SetFlash(ctx, browser.FlashSuccess, "OTP Sent", "Please check your phone for verification code")

	case "otp":
		if _, err := flow.VerifyOTP(ctx, r.PostFormValue("otp")); err != nil {
			h.registerFailed(w, r, b, flow, err, "Invalid Code", nil)
			return
		}
		b.SetFlash(ctx, browser.FlashSuccess, "Phone Verified", "Please complete your registration")

	case "profile":
		profile := registration.Profile{
			Name:            r.PostFormValue("name"),
			Address:         r.PostFormValue("address"),
			FacebookProfile: r.PostFormValue("facebook_profile"),
			Email:           r.PostFormValue("email"),
			Password:        r.PostFormValue("password"),
			ConfirmPassword: r.PostFormValue("confirm_password"),
		}
		if _, err := flow.Complete(ctx, profile); err != nil {
			form := map[string]string{
				"name":             profile.Name,
				"address":          profile.Address,
				"facebook_profile": profile.FacebookProfile,
				"email":            profile.Email,
			}
			h.registerFailed(w, r, b, flow, err, "Registration Failed", form)
			return
		}
		b.SetFlash(ctx, browser.FlashSuccess, "Registration Successful", "Welcome to Tumio Parbe!")
		seeOther(w, r, guard.DashboardPath)
		return

	default:
		b.SetFlash(ctx, browser.FlashError, "Something went wrong", "Please try again")
	}

	seeOther(w, r, registerPath)
}

// Resend handles POST /register/resend.
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	b, ok := h.current(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	flow := h.flow(b)

	_, err := flow.Resend(ctx)
	switch {
	case errors.Is(err, registration.ErrResendCooldown):
		b.SetFlash(ctx, browser.FlashInfo, "Please wait", "You can request a new code when the timer runs out")
	case err != nil:
		b.SetFlash(ctx, browser.FlashError, "Failed to resend OTP", failureMessage(err, "Please try again"))
	default:
		b.SetFlash(ctx, browser.FlashSuccess, "OTP Resent", "Please check your phone for a new verification code")
	}
	seeOther(w, r, registerPath)
}

// ChangePhone handles POST /register/change.
func (h *Handler) ChangePhone(w http.ResponseWriter, r *http.Request) {
	b, ok := h.current(w, r)
	if !ok {
		return
	}
	if _, err := h.flow(b).ChangePhone(r.Context()); err != nil && !errors.Is(err, registration.ErrWrongStep) {
		b.SetFlash(r.Context(), browser.FlashError, "Something went wrong", "Please try again")
	}
	seeOther(w, r, registerPath)
}

// Countdown handles GET /register/countdown, streaming the resend and
// expiry timers of the OTP step as server-sent events until both reach
// zero or the browser disconnects.
func (h *Handler) Countdown(w http.ResponseWriter, r *http.Request) {
	b, ok := h.current(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	state := h.flow(b).State(ctx)
	if state.Step != registration.StepOTP {
		writeEvent(w, "done", "")
		flusher.Flush()
		return
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resend := h.countdown.Watch(streamCtx, state.ResendAt, time.Second)
	expiry := h.countdown.Watch(streamCtx, state.ExpiresAt, time.Second)

	for resend != nil || expiry != nil {
		select {
		case s, ok := <-resend:
			if !ok {
				resend = nil
				continue
			}
			writeEvent(w, "resend", strconv.Itoa(s))
		case s, ok := <-expiry:
			if !ok {
				expiry = nil
				continue
			}
			writeEvent(w, "expiry", registration.FormatRemaining(s))
		case <-ctx.Done():
			return
		case <-h.done:
			return
		}
		flusher.Flush()
	}

	writeEvent(w, "done", "")
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

// allowOTP applies the per-phone send limit. The flow only asks once a code
// is really about to be sent.
func (h *Handler) allowOTP(phone string) error {
	if h.otpLimiter == nil {
		return nil
	}
	if !h.otpLimiter.Allow(middleware.GetPhoneKey(phone)) {
		return errOTPLimited
	}
	return nil
}

// registerFailed re-renders the step with field errors, or flashes the
// failure and goes back to the step.
func (h *Handler) registerFailed(w http.ResponseWriter, r *http.Request, b *browser.Browser, flow *registration.Flow, err error, title string, form map[string]string) {
	ctx := r.Context()
	logctx.From(ctx).Info("registration_step_failed", slog.String("err", err.Error()))

	var invalid registration.ValidationErrors
	if errors.As(err, &invalid) || errors.Is(err, registration.ErrOTPRejected) {
		p := h.page(r, b, "Register")
		for k, v := range form {
			p.Form[k] = v
		}
		if !fieldErrors(&p, err) {
			p.Errors["otp"] = "Invalid OTP"
		}
		p.Data = stateData(flow.State(ctx), time.Now())
		h.render(w, r, http.StatusUnprocessableEntity, "register", p)
		return
	}

	switch {
	case errors.Is(err, registration.ErrWrongStep):
		// stale form, show the step the browser is really on
	case errors.Is(err, registration.ErrOTPExpired):
		b.SetFlash(ctx, browser.FlashError, "Code expired", "Please request a new code")
	default:
		b.SetFlash(ctx, browser.FlashError, title, failureMessage(err, "Please try again"))
	}
	seeOther(w, r, registerPath)
}

func failureMessage(err error, def string) string {
	if errors.Is(err, errOTPLimited) {
		return "Too many codes requested, please try again later"
	}
	return api.Message(err, def)
}
