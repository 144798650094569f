package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tumioparbe/web/internal/api"
	"github.com/tumioparbe/web/internal/browser"
	"github.com/tumioparbe/web/internal/guard"
	"github.com/tumioparbe/web/internal/model"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/registration"
)

var (
	member = guard.Policy{RequireAuth: true}
	admin  = guard.Policy{RequireAuth: true, AdminOnly: true}
)

const (
	profilePath  = "/dashboard/profile"
	studentsPath = "/dashboard/students"
	paymentsPath = "/dashboard/payments"
)

// Dashboard handles GET /dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, member)
	if !ok {
		return
	}
	stats, err := dashboardStats(r.Context(), b.API)
	if err != nil {
		h.apiFailed(w, r, b, err, "Could not load your dashboard", "/")
		return
	}
	p := h.page(r, b, "Dashboard")
	p.Data = stats
	h.render(w, r, http.StatusOK, "dashboard", p)
}

// dashboardStats gathers the landing page counters concurrently.
func dashboardStats(ctx context.Context, c *api.Client) (model.DashboardStats, error) {
	var stats model.DashboardStats
	active := true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		courses, err := c.GetCourses(gctx, api.CourseFilter{IsActive: &active})
		stats.ActiveCourses = courses.Count
		return err
	})
	g.Go(func() error {
		enrollments, err := c.GetEnrollments(gctx, api.EnrollmentFilter{IsActive: &active})
		stats.ActiveEnrollments = enrollments.Count
		return err
	})
	g.Go(func() error {
		invoices, err := c.GetPendingInvoices(gctx)
		stats.PendingInvoices = invoices.Count
		return err
	})
	g.Go(func() error {
		history, err := c.GetPaymentHistory(gctx)
		for _, p := range history.Results {
			if strings.EqualFold(p.Status, "completed") {
				stats.TotalPaid += p.Amount
			}
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return model.DashboardStats{}, err
	}
	return stats, nil
}

// ProfilePage handles GET /dashboard/profile
func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, member)
	if !ok {
		return
	}
	p := h.page(r, b, "Profile")
	if u := p.User; u != nil {
		p.Form["name"] = u.Name
		p.Form["address"] = u.Address
		p.Form["facebook_profile"] = u.FacebookProfile
		p.Form["email"] = u.Email
	}
	h.render(w, r, http.StatusOK, "profile", p)
}

// UpdateProfile handles POST /dashboard/profile and refreshes the session user.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, member)
	if !ok {
		return
	}
	ctx := r.Context()

	in := registration.Profile{
		Name:            r.PostFormValue("name"),
		Address:         r.PostFormValue("address"),
		FacebookProfile: r.PostFormValue("facebook_profile"),
		Email:           r.PostFormValue("email"),
	}.Normalize()

	if err := in.ValidateContact(); err != nil {
		p := h.page(r, b, "Profile")
		p.Form["name"] = in.Name
		p.Form["address"] = in.Address
		p.Form["facebook_profile"] = in.FacebookProfile
		p.Form["email"] = in.Email
		fieldErrors(&p, err)
		h.render(w, r, http.StatusUnprocessableEntity, "profile", p)
		return
	}

	user, err := b.API.UpdateProfile(ctx, api.ProfileUpdate{
		Name:            in.Name,
		Address:         in.Address,
		FacebookProfile: in.FacebookProfile,
		Email:           in.Email,
	})
	if err == nil {
		err = b.Session.UpdateUser(ctx, user)
	}
	if err != nil {
		h.apiFailed(w, r, b, err, "Profile update failed", profilePath)
		return
	}

	logctx.From(ctx).Info("profile_updated", slog.Int64("user_id", user.ID))
	b.SetFlash(ctx, browser.FlashSuccess, "Profile updated", "")
	seeOther(w, r, profilePath)
}

// StudentsPage handles GET /dashboard/students
func (h *Handler) StudentsPage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, member)
	if !ok {
		return
	}
	students, err := b.API.GetStudents(r.Context())
	if err != nil {
		h.apiFailed(w, r, b, err, "Could not load students", guard.DashboardPath)
		return
	}
	p := h.page(r, b, "Students")
	p.Data = students
	h.render(w, r, http.StatusOK, "students", p)
}

// AddStudent handles POST /dashboard/students
func (h *Handler) AddStudent(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, member)
	if !ok {
		return
	}
	ctx := r.Context()

	in := api.StudentInput{
		Name:         strings.TrimSpace(r.PostFormValue("name")),
		DateOfBirth:  strings.TrimSpace(r.PostFormValue("date_of_birth")),
		School:       strings.TrimSpace(r.PostFormValue("school")),
		CurrentClass: strings.TrimSpace(r.PostFormValue("current_class")),
		FatherName:   strings.TrimSpace(r.PostFormValue("father_name")),
		MotherName:   strings.TrimSpace(r.PostFormValue("mother_name")),
	}

	if errs := validateStudent(in); len(errs) > 0 {
		students, err := b.API.GetStudents(ctx)
		if err != nil {
			h.apiFailed(w, r, b, err, "Could not load students", guard.DashboardPath)
			return
		}
		p := h.page(r, b, "Students")
		p.Data = students
		p.Errors = errs
		p.Form = map[string]string{
			"name":          in.Name,
			"date_of_birth": in.DateOfBirth,
			"school":        in.School,
			"current_class": in.CurrentClass,
			"father_name":   in.FatherName,
			"mother_name":   in.MotherName,
		}
		h.render(w, r, http.StatusUnprocessableEntity, "students", p)
		return
	}

	student, err := b.API.AddStudent(ctx, in)
	if err != nil {
		h.apiFailed(w, r, b, err, "Could not add student", studentsPath)
		return
	}
	logctx.From(ctx).Info("student_added", slog.Int64("student_id", student.ID))
	b.SetFlash(ctx, browser.FlashSuccess, "Student added", student.Name)
	seeOther(w, r, studentsPath)
}

func validateStudent(in api.StudentInput) map[string]string {
	errs := map[string]string{}
	if in.Name == "" {
		errs["name"] = "Name is required"
	}
	if _, err := time.Parse(time.DateOnly, in.DateOfBirth); err != nil {
		errs["date_of_birth"] = "Please enter a valid date"
	}
	if in.FatherName == "" {
		errs["father_name"] = "Father's name is required"
	}
	if in.MotherName == "" {
		errs["mother_name"] = "Mother's name is required"
	}
	return errs
}

// CoursesPage handles GET /dashboard/courses and lists the active courses.
func (h *Handler) CoursesPage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, member)
	if !ok {
		return
	}
	active := true
	courses, err := b.API.GetCourses(r.Context(), api.CourseFilter{IsActive: &active})
	if err != nil {
		h.apiFailed(w, r, b, err, "Could not load courses", guard.DashboardPath)
		return
	}
	p := h.page(r, b, "Courses")
	p.Data = courses
	h.render(w, r, http.StatusOK, "courses", p)
}

type paymentsData struct {
	Pending model.Paginated[model.Invoice]
	History model.Paginated[model.Payment]
}

// PaymentsPage handles GET /dashboard/payments
func (h *Handler) PaymentsPage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, member)
	if !ok {
		return
	}

	var data paymentsData
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		data.Pending, err = b.API.GetPendingInvoices(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.History, err = b.API.GetPaymentHistory(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.apiFailed(w, r, b, err, "Could not load payments", guard.DashboardPath)
		return
	}

	p := h.page(r, b, "Payments")
	p.Data = data
	h.render(w, r, http.StatusOK, "payments", p)
}

// PayInvoice handles POST /dashboard/payments
func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, member)
	if !ok {
		return
	}
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PostFormValue("invoice_id"), 10, 64)
	if err != nil || id <= 0 {
		b.SetFlash(ctx, browser.FlashError, "Payment failed", "Unknown invoice")
		seeOther(w, r, paymentsPath)
		return
	}

	payment, err := b.API.PayInvoice(ctx, id)
	if err != nil {
		h.apiFailed(w, r, b, err, "Payment failed", paymentsPath)
		return
	}
	logctx.From(ctx).Info("invoice_payment_started",
		slog.Int64("invoice_id", id),
		slog.String("payment_id", payment.PaymentID),
		slog.String("status", payment.Status),
	)
	b.SetFlash(ctx, browser.FlashSuccess, "Payment started", "Status: "+payment.Status)
	seeOther(w, r, paymentsPath)
}

type analyticsData struct {
	SMSRemaining int
	Stats        model.DashboardStats
}

// Analytics handles GET /dashboard/analytics (admins only)
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, admin)
	if !ok {
		return
	}
	stats, err := dashboardStats(r.Context(), b.API)
	if err != nil {
		h.apiFailed(w, r, b, err, "Could not load analytics", guard.DashboardPath)
		return
	}
	p := h.page(r, b, "Analytics")
	p.Data = analyticsData{SMSRemaining: h.smsQuota(r.Context(), b), Stats: stats}
	h.render(w, r, http.StatusOK, "analytics", p)
}

type adminData struct {
	SMSRemaining int
}

// AdminDashboard handles GET /admin/dashboard
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, admin)
	if !ok {
		return
	}
	p := h.page(r, b, "Admin Dashboard")
	p.Data = adminData{SMSRemaining: h.smsQuota(r.Context(), b)}
	h.render(w, r, http.StatusOK, "admin", p)
}

// smsQuota reports 0 when the quota cannot be read.
func (h *Handler) smsQuota(ctx context.Context, b *browser.Browser) int {
	n, err := b.API.CheckSMSQuota(ctx)
	if err != nil {
		logctx.From(ctx).Warn("sms_quota_failed", slog.String("err", err.Error()))
		return 0
	}
	return n
}
