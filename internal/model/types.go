package model

// TokenPair is the access/refresh credential pair issued by the backend.
// A pair with either half missing is treated as absent.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Complete reports whether both halves of the pair are present.
func (p *TokenPair) Complete() bool {
	return p != nil && p.Access != "" && p.Refresh != ""
}

// User is the signed-in parent (or admin) profile
type User struct {
	ID              int64  `json:"id"`
	Phone           string `json:"phone"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	FacebookProfile string `json:"facebook_profile"`
	Email           string `json:"email,omitempty"`
	IsAdmin         bool   `json:"is_admin"`
}

// Student is a child registered under a parent account
type Student struct {
	ID           int64  `json:"id"`
	Parent       int64  `json:"parent"`
	Name         string `json:"name"`
	DateOfBirth  string `json:"date_of_birth"`
	School       string `json:"school,omitempty"`
	CurrentClass string `json:"current_class,omitempty"`
	FatherName   string `json:"father_name"`
	MotherName   string `json:"mother_name"`
}

// Course is a course offered on the platform
type Course struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	AdmissionFee float64 `json:"admission_fee"`
	TuitionFee   float64 `json:"tuition_fee"`
	IsActive     bool    `json:"is_active"`
	Batches      []Batch `json:"batches"`
}

// Batch is a scheduled group of a course
type Batch struct {
	ID           int64    `json:"id"`
	Course       int64    `json:"course"`
	Name         string   `json:"name"`
	Timing       string   `json:"timing"`
	GroupLink    string   `json:"group_link,omitempty"`
	ClassLink    string   `json:"class_link,omitempty"`
	TuitionFee   *float64 `json:"tuition_fee,omitempty"`
	IsVisible    bool     `json:"is_visible"`
	StudentCount int      `json:"student_count"`
}

// Enrollment links a student to a batch
type Enrollment struct {
	ID         int64   `json:"id"`
	Student    int64   `json:"student"`
	Batch      int64   `json:"batch"`
	StartMonth string  `json:"start_month"`
	TuitionFee float64 `json:"tuition_fee"`
	IsActive   bool    `json:"is_active"`
	Coupon     *int64  `json:"coupon,omitempty"`
}

// Invoice is a monthly tuition bill
type Invoice struct {
	ID         int64   `json:"id"`
	Enrollment int64   `json:"enrollment"`
	Month      string  `json:"month"`
	Amount     float64 `json:"amount"`
	IsPaid     bool    `json:"is_paid"`
	Coupon     *int64  `json:"coupon,omitempty"`
}

// Payment is a payment attempt against an invoice
type Payment struct {
	ID                 int64   `json:"id"`
	Invoice            int64   `json:"invoice"`
	TransactionID      string  `json:"transaction_id"`
	PaymentID          string  `json:"payment_id"`
	Amount             float64 `json:"amount"`
	PaymentMethod      string  `json:"payment_method"`
	Status             string  `json:"status"`
	PayerReference     string  `json:"payer_reference"`
	PaymentCreateTime  string  `json:"payment_create_time"`
	PaymentExecuteTime string  `json:"payment_execute_time"`
}

// Paginated is the backend's list envelope
type Paginated[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// RegistrationRequest is the final registration step payload
type RegistrationRequest struct {
	Phone           string `json:"phone"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	FacebookProfile string `json:"facebook_profile"`
	Email           string `json:"email,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RegistrationResponse carries the new user and its first token pair
type RegistrationResponse struct {
	Success bool   `json:"success"`
	User    User   `json:"user"`
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// EnrollmentInitiateRequest starts an enrollment
type EnrollmentInitiateRequest struct {
	Student    int64  `json:"student"`
	Batch      int64  `json:"batch"`
	StartMonth string `json:"start_month"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// EnrollmentPaymentRequest starts the payment of an enrollment
type EnrollmentPaymentRequest struct {
	EnrollmentID int64   `json:"enrollment_id"`
	Amount       float64 `json:"amount"`
}

// DashboardStats is the summary shown on the dashboard landing page
type DashboardStats struct {
	ActiveCourses     int     `json:"active_courses"`
	ActiveEnrollments int     `json:"active_enrollments"`
	PendingInvoices   int     `json:"pending_invoices"`
	TotalPaid         float64 `json:"total_paid"`
}
