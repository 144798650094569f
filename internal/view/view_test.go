package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumioparbe/web/internal/browser"
	"github.com/tumioparbe/web/internal/model"
)

func render(t *testing.T, page string, data Page) string {
	t.Helper()
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, page, data))
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	return rec.Body.String()
}

func TestNew_ParsesEveryPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	for _, page := range []string{"home", "login", "register", "dashboard", "profile", "students", "courses", "payments", "analytics", "admin", "error"} {
		assert.True(t, r.Has(page), page)
	}
	assert.False(t, r.Has("_layout"))
}

func TestRender_UnknownPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.Error(t, r.Render(rec, http.StatusOK, "nope", Page{}))
	assert.Empty(t, rec.Body.String())
}

func TestRender_LoginShowsErrorsAndFlash(t *testing.T) {
	body := render(t, "login", Page{
		Title:  "Log in",
		Flash:  &browser.Flash{Kind: browser.FlashError, Title: "Login failed"},
		Form:   map[string]string{"phone": "0171", "returnUrl": "/dashboard/courses"},
		Errors: map[string]string{"phone": "Please enter a valid 11-digit phone number"},
	})
	assert.Contains(t, body, "Login failed")
	assert.Contains(t, body, "Please enter a valid 11-digit phone number")
	assert.Contains(t, body, `value="/dashboard/courses"`)
	assert.Contains(t, body, "<title>Log in | Tumio Parbe</title>")
}

func TestRender_SidebarHidesAdminLinks(t *testing.T) {
	user := &model.User{Name: "Rahim", Phone: "01712345678"}
	data := Page{Path: "/dashboard", User: user, Data: model.DashboardStats{ActiveCourses: 2}}

	body := render(t, "dashboard", data)
	assert.NotContains(t, body, "/dashboard/analytics")
	assert.Contains(t, body, `href="/dashboard" aria-current="page"`)

	data.IsAdmin = true
	body = render(t, "dashboard", data)
	assert.Contains(t, body, "/dashboard/analytics")
	assert.Contains(t, body, "/admin/dashboard")
}

type registerData struct {
	Step      int
	Phone     string
	ExpiresIn int
	ResendIn  int
}

func TestRender_RegisterSteps(t *testing.T) {
	body := render(t, "register", Page{Data: registerData{Step: 1}})
	assert.Contains(t, body, `name="step" value="phone"`)

	body = render(t, "register", Page{Data: registerData{Step: 2, Phone: "01712345678", ExpiresIn: 299, ResendIn: 42}})
	assert.Contains(t, body, "01712*****")
	assert.Contains(t, body, "4:59")
	assert.Contains(t, body, "disabled")
	assert.Contains(t, body, "/register/countdown")

	body = render(t, "register", Page{Data: registerData{Step: 3, Phone: "01712345678"}})
	assert.Contains(t, body, `name="confirm_password"`)
}
