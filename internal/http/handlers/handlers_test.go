package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tumioparbe/web/internal/api"
	"github.com/tumioparbe/web/internal/registration"
	"github.com/tumioparbe/web/internal/view"
)

func TestLocalPath(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"/dashboard/courses":   "/dashboard/courses",
		"/dashboard?tab=2":     "/dashboard?tab=2",
		"//evil.example/x":     "",
		"/\\evil.example":      "",
		"https://evil.example": "",
		"dashboard":            "",
		"/login":               "",
		"/login?returnUrl=%2F": "",
		"/loginx":              "/loginx",
	}
	for in, want := range cases {
		assert.Equal(t, want, localPath(in), in)
	}
}

func TestLanding(t *testing.T) {
	assert.Equal(t, "/dashboard", landing("", false))
	assert.Equal(t, AdminDashboardPath, landing("", true))
	assert.Equal(t, "/dashboard/payments", landing("/dashboard/payments", true))
	assert.Equal(t, "/dashboard", landing("//evil.example", false))
}

func TestValidateStudent(t *testing.T) {
	errs := validateStudent(api.StudentInput{})
	assert.Len(t, errs, 4)

	errs = validateStudent(api.StudentInput{Name: "Samia", DateOfBirth: "2016-02-10", FatherName: "Rahim", MotherName: "Salma"})
	assert.Empty(t, errs)

	errs = validateStudent(api.StudentInput{Name: "Samia", DateOfBirth: "10/02/2016", FatherName: "Rahim", MotherName: "Salma"})
	assert.Equal(t, map[string]string{"date_of_birth": "Please enter a valid date"}, errs)
}

func TestStateData(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := registration.State{
		Step:      registration.StepOTP,
		Phone:     "01812345678",
		ResendAt:  now.Add(42 * time.Second),
		ExpiresAt: now.Add(299 * time.Second),
	}
	assert.Equal(t, registerData{Step: 2, Phone: "01812345678", ExpiresIn: 299, ResendIn: 42}, stateData(s, now))

	s.Step = registration.StepProfile
	assert.Equal(t, registerData{Step: 3, Phone: "01812345678"}, stateData(s, now), "timers only matter on the OTP step")
}

func TestFieldErrors(t *testing.T) {
	p := view.Page{Errors: map[string]string{}}
	assert.True(t, fieldErrors(&p, registration.ValidatePhone("")))
	assert.Equal(t, "Phone number is required", p.Errors["phone"])

	assert.False(t, fieldErrors(&p, errors.New("boom")))
	assert.False(t, fieldErrors(&p, nil))
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "Too many codes requested, please try again later", failureMessage(errOTPLimited, "x"))
	assert.Equal(t, "Number is blocked", failureMessage(&api.Error{Status: 400, Message: "Number is blocked"}, "x"))
	assert.Equal(t, "x", failureMessage(errors.New("boom"), "x"))
}
