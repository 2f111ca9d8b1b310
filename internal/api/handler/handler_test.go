package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"

	"club-manager/backend/internal/api/middleware"
	"club-manager/backend/internal/dto"
	"club-manager/backend/internal/policy"
	"club-manager/backend/internal/service"
	pkgerrors "club-manager/backend/pkg/errors"
	"club-manager/backend/pkg/jwt"
	"club-manager/backend/pkg/response"
	"club-manager/backend/pkg/validate"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validate.RegisterGin(); err != nil {
		panic(err)
	}
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	logoutErr     error
	logoutClaims  *jwt.Claims
	logoutRefresh string
	meResult      *dto.MeResponse
	meErr         error
	resetErr      error
	verifyResult  *dto.PasswordResetVerifyResponse
	verifyErr     error
	confirmErr    error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Refresh(_ context.Context, _ *dto.RefreshRequest) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, access *jwt.Claims, refreshToken string) error {
	m.logoutClaims, m.logoutRefresh = access, refreshToken
	return m.logoutErr
}
func (m *mockAuthService) Me(_ context.Context, _ policy.Policy) (*dto.MeResponse, error) {
	return m.meResult, m.meErr
}
func (m *mockAuthService) RequestPasswordReset(_ context.Context, _ *dto.PasswordResetRequest) error {
	return m.resetErr
}
func (m *mockAuthService) VerifyPasswordReset(_ context.Context, _ *dto.PasswordResetVerifyRequest) (*dto.PasswordResetVerifyResponse, error) {
	return m.verifyResult, m.verifyErr
}
func (m *mockAuthService) ConfirmPasswordReset(_ context.Context, _ *dto.PasswordResetConfirmRequest) error {
	return m.confirmErr
}

// ── Mock ReservationService ──

type mockReservationService struct {
	upcomingResult *dto.UpcomingResponse
	freeResult     *dto.FreeSlotsResponse
	searchResult   []dto.ReservationResponse
	searchTotal    int64
	searchParams   url.Values
	getResult      *dto.ReservationResponse
	invoiceResult  *dto.ReservationInvoiceResponse
	startResult    *dto.WizardResponse
	stepResult     *dto.WizardSlotsResponse
	completeResult []dto.ReservationResponse
	err            error
	lastPolicy     policy.Policy
}

func (m *mockReservationService) Upcoming(_ context.Context) (*dto.UpcomingResponse, error) {
	return m.upcomingResult, m.err
}
func (m *mockReservationService) FreeSlotsOn(_ context.Context, _ string) (*dto.FreeSlotsResponse, error) {
	return m.freeResult, m.err
}
func (m *mockReservationService) Search(_ context.Context, params url.Values, _ *dto.PaginationRequest) ([]dto.ReservationResponse, int64, error) {
	m.searchParams = params
	return m.searchResult, m.searchTotal, m.err
}
func (m *mockReservationService) GetByID(_ context.Context, _ string) (*dto.ReservationResponse, error) {
	return m.getResult, m.err
}
func (m *mockReservationService) Delete(_ context.Context, _ string) error {
	return m.err
}
func (m *mockReservationService) Invoice(_ context.Context, _ string) (*dto.ReservationInvoiceResponse, error) {
	return m.invoiceResult, m.err
}
func (m *mockReservationService) StartWizard(_ context.Context, pol policy.Policy, _ *dto.StartWizardRequest) (*dto.WizardResponse, error) {
	m.lastPolicy = pol
	return m.startResult, m.err
}
func (m *mockReservationService) WizardStep(_ context.Context, pol policy.Policy, _ string, _ *dto.WizardStepRequest) (*dto.WizardSlotsResponse, error) {
	m.lastPolicy = pol
	return m.stepResult, m.err
}
func (m *mockReservationService) CompleteWizard(_ context.Context, pol policy.Policy, _ string, _ *dto.CompleteWizardRequest) ([]dto.ReservationResponse, error) {
	m.lastPolicy = pol
	return m.completeResult, m.err
}
func (m *mockReservationService) CancelWizard(_ context.Context, pol policy.Policy, _ string) error {
	m.lastPolicy = pol
	return m.err
}

// ── Mock SubscriptionService ──

// mockSubscriptionService 只实现测试用到的方法，其余方法调用会 panic
type mockSubscriptionService struct {
	service.SubscriptionService
	payResult *dto.SubscriptionMutationResponse
	getResult *dto.SubscriptionResponse
	err       error
}

func (m *mockSubscriptionService) Pay(_ context.Context, _ policy.Policy, _ string, _ *dto.PaymentRequest) (*dto.SubscriptionMutationResponse, error) {
	return m.payResult, m.err
}
func (m *mockSubscriptionService) GetByID(_ context.Context, _ string) (*dto.SubscriptionResponse, error) {
	return m.getResult, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

const testUUID = "0b6f3a52-3c4f-4f0e-9d3e-6a1c2b7d9e10"

func setAuth(c *gin.Context, perms ...policy.Permission) {
	list := make([]string, 0, len(perms))
	for _, p := range perms {
		list = append(list, string(p))
	}
	c.Set(middleware.ContextUserID, "test-user-id")
	c.Set(middleware.ContextPolicy, policy.New("test-user-id", true, false, list))
	c.Set(middleware.ContextClaims, &jwt.Claims{UserID: "test-user-id"})
}

func withAuth(h gin.HandlerFunc, perms ...policy.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c, perms...)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func serve(method, route, target string, body io.Reader, h gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, h)
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status, code int) {
	t.Helper()
	if w.Code != status {
		t.Errorf("expected %d, got %d", status, w.Code)
	}
	if resp := parseResponse(w); resp.Code != code {
		t.Errorf("expected error code %d, got %d", code, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 1800, LandingPage: "reservations"},
	}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/login", "/auth/login",
		jsonBody(dto.LoginRequest{Phone: "0511111111", Password: "Password123"}), h.Login)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	data, _ := resp.Data.(map[string]interface{})
	if data["landing_page"] != "reservations" {
		t.Errorf("expected landing_page reservations, got %v", data["landing_page"])
	}
}

func TestAuthHandler_Login_InvalidPhone(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/login", "/auth/login",
		jsonBody(dto.LoginRequest{Phone: "12345", Password: "Password123"}), h.Login)

	assertError(t, w, http.StatusBadRequest, 10001)
}

func TestAuthHandler_Login_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"wrong password", service.ErrInvalidCredentials, http.StatusUnauthorized, 11001},
		{"no landing page", service.ErrNoLandingPage, http.StatusForbidden, 11002},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{loginErr: tt.err})
			w := serve("POST", "/auth/login", "/auth/login",
				jsonBody(dto.LoginRequest{Phone: "0511111111", Password: "Password123"}), h.Login)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
			if tt.status != http.StatusInternalServerError {
				if resp := parseResponse(w); resp.Code != tt.code {
					t.Errorf("expected error code %d, got %d", tt.code, resp.Code)
				}
			}
		})
	}
}

func TestAuthHandler_Refresh_Expired(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: jwt.ErrTokenExpired})

	w := serve("POST", "/auth/refresh", "/auth/refresh",
		jsonBody(dto.RefreshRequest{RefreshToken: "old"}), h.RefreshToken)

	assertError(t, w, http.StatusUnauthorized, 11004)
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/refresh", "/auth/refresh", jsonBody(map[string]string{}), h.RefreshToken)

	assertError(t, w, http.StatusBadRequest, 10001)
}

func TestAuthHandler_Logout_PassesClaimsAndRefreshToken(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/logout", "/auth/logout",
		jsonBody(map[string]string{"refresh_token": "refresh"}), withAuth(h.Logout))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.logoutClaims == nil || mock.logoutClaims.UserID != "test-user-id" {
		t.Errorf("expected access claims to be passed, got %+v", mock.logoutClaims)
	}
	if mock.logoutRefresh != "refresh" {
		t.Errorf("expected refresh token to be passed, got %q", mock.logoutRefresh)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("GET", "/auth/me", "/auth/me", nil, h.Me)

	assertError(t, w, http.StatusUnauthorized, 10002)
}

func TestAuthHandler_PasswordReset_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		mock   *mockAuthService
		route  string
		body   interface{}
		status int
		code   int
	}{
		{"provider down", &mockAuthService{resetErr: service.ErrOTPProvider}, "/reset",
			dto.PasswordResetRequest{Phone: "0511111111"}, http.StatusBadGateway, 11006},
		{"wrong code", &mockAuthService{verifyErr: service.ErrInvalidOTP}, "/verify",
			dto.PasswordResetVerifyRequest{Phone: "0511111111", Code: "123456"}, http.StatusBadRequest, 11005},
		{"token expired", &mockAuthService{confirmErr: service.ErrResetTokenExpired}, "/confirm",
			dto.PasswordResetConfirmRequest{Token: "t", Password1: "Password123", Password2: "Password123"}, http.StatusGone, 11008},
		{"mismatch", &mockAuthService{confirmErr: service.ErrPasswordMismatch}, "/confirm",
			dto.PasswordResetConfirmRequest{Token: "t", Password1: "Password123", Password2: "Password124"}, http.StatusBadRequest, 11007},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(tt.mock)
			handlers := map[string]gin.HandlerFunc{
				"/reset":   h.RequestPasswordReset,
				"/verify":  h.VerifyPasswordReset,
				"/confirm": h.ConfirmPasswordReset,
			}
			w := serve("POST", tt.route, tt.route, jsonBody(tt.body), handlers[tt.route])
			assertError(t, w, tt.status, tt.code)
		})
	}
}

// ═══════════════════════════════════════════════════════════
// ReservationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestReservationHandler_Upcoming_Success(t *testing.T) {
	mock := &mockReservationService{upcomingResult: &dto.UpcomingResponse{}}
	h := NewReservationHandler(mock)

	w := serve("GET", "/reservations/upcoming", "/reservations/upcoming", nil, h.Upcoming)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestReservationHandler_FreeSlots_InvalidDayIsNotFound(t *testing.T) {
	h := NewReservationHandler(&mockReservationService{err: service.ErrInvalidDay})

	w := serve("GET", "/reservations/free-slots/:day", "/reservations/free-slots/tomorrow", nil, h.FreeSlots)

	assertError(t, w, http.StatusNotFound, 15002)
}

func TestReservationHandler_Search_PassesRawQuery(t *testing.T) {
	mock := &mockReservationService{searchResult: []dto.ReservationResponse{{ID: "r1"}}, searchTotal: 1}
	h := NewReservationHandler(mock)

	w := serve("GET", "/reservations", "/reservations?facility=bogus&day=2026-03-05&page=2", nil, h.Search)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.searchParams.Get("facility") != "bogus" || mock.searchParams.Get("day") != "2026-03-05" {
		t.Errorf("expected raw query params to reach the service, got %v", mock.searchParams)
	}
}

func TestReservationHandler_StartWizard_Created(t *testing.T) {
	mock := &mockReservationService{startResult: &dto.WizardResponse{Token: "tok", Kind: "single"}}
	h := NewReservationHandler(mock)

	w := serve("POST", "/wizards", "/wizards",
		jsonBody(dto.StartWizardRequest{Kind: "single"}), withAuth(h.StartWizard, policy.AddReservation, policy.ChangePrice))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.lastPolicy.UserID() != "test-user-id" || !mock.lastPolicy.Allows(policy.ChangePrice) {
		t.Errorf("expected caller policy to reach the service, got %+v", mock.lastPolicy)
	}
}

func TestReservationHandler_StartWizard_InvalidKind(t *testing.T) {
	h := NewReservationHandler(&mockReservationService{})

	w := serve("POST", "/wizards", "/wizards",
		jsonBody(dto.StartWizardRequest{Kind: "monthly"}), withAuth(h.StartWizard))

	assertError(t, w, http.StatusBadRequest, 10001)
}

func TestReservationHandler_StartWizard_Unauthenticated(t *testing.T) {
	h := NewReservationHandler(&mockReservationService{})

	w := serve("POST", "/wizards", "/wizards", jsonBody(dto.StartWizardRequest{Kind: "single"}), h.StartWizard)

	assertError(t, w, http.StatusUnauthorized, 10002)
}

func TestReservationHandler_CompleteWizard_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"slot taken", service.ErrSlotTaken, http.StatusConflict, 15003},
		{"wizard expired", service.ErrWizardNotFound, http.StatusGone, 15004},
		{"other owner", service.ErrWizardForbidden, http.StatusForbidden, 15005},
		{"step skipped", service.ErrWizardStep, http.StatusUnprocessableEntity, 15006},
		{"no customer", service.ErrWizardUserRequired, http.StatusBadRequest, 15007},
		{"facility suspended", service.ErrFacilitySuspended, http.StatusUnprocessableEntity, 14009},
		{"slot elsewhere", service.ErrSlotNotInFacility, http.StatusBadRequest, 14007},
		{"customer missing", service.ErrCustomerNotFound, http.StatusNotFound, 12001},
		{"version conflict", pkgerrors.ErrOptimisticLock, http.StatusConflict, 10007},
		{"duplicate", pkgerrors.ErrDuplicate, http.StatusConflict, 10008},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReservationHandler(&mockReservationService{err: tt.err})
			w := serve("POST", "/wizards/:token/complete", "/wizards/tok/complete",
				jsonBody(dto.CompleteWizardRequest{UserID: testUUID, TimeSlotID: testUUID}), withAuth(h.CompleteWizard))
			assertError(t, w, tt.status, tt.code)
		})
	}
}

func TestReservationHandler_CompleteWizard_Success(t *testing.T) {
	mock := &mockReservationService{completeResult: []dto.ReservationResponse{{ID: "r1"}, {ID: "r2"}}}
	h := NewReservationHandler(mock)

	w := serve("POST", "/wizards/:token/complete", "/wizards/tok/complete",
		jsonBody(dto.CompleteWizardRequest{UserID: testUUID, TimeSlotID: testUUID}), withAuth(h.CompleteWizard))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	data, _ := parseResponse(w).Data.(map[string]interface{})
	if list, _ := data["list"].([]interface{}); len(list) != 2 {
		t.Errorf("expected 2 reservations, got %v", data["list"])
	}
}

func TestReservationHandler_Delete_NotFound(t *testing.T) {
	h := NewReservationHandler(&mockReservationService{err: service.ErrReservationNotFound})

	w := serve("DELETE", "/reservations/:id", "/reservations/missing", nil, h.Delete)

	assertError(t, w, http.StatusNotFound, 15001)
}

// ═══════════════════════════════════════════════════════════
// SubscriptionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSubscriptionHandler_Pay_Created(t *testing.T) {
	mock := &mockSubscriptionService{payResult: &dto.SubscriptionMutationResponse{
		Invoice: &dto.InvoiceResponse{ID: "inv-1", Paid: 100},
	}}
	h := NewSubscriptionHandler(mock)

	w := serve("POST", "/subscriptions/:id/payments", "/subscriptions/sub-1/payments",
		jsonBody(dto.PaymentRequest{Amount: 100}), withAuth(h.Pay, policy.AddSubscription))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestSubscriptionHandler_Pay_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"exceeds due", service.ErrPaymentExceedsDue, http.StatusUnprocessableEntity, 18004},
		{"nothing due", service.ErrNothingDue, http.StatusUnprocessableEntity, 18004},
		{"missing", service.ErrSubscriptionNotFound, http.StatusNotFound, 18001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSubscriptionHandler(&mockSubscriptionService{err: tt.err})
			w := serve("POST", "/subscriptions/:id/payments", "/subscriptions/sub-1/payments",
				jsonBody(dto.PaymentRequest{Amount: 100}), withAuth(h.Pay))
			assertError(t, w, tt.status, tt.code)
		})
	}
}

func TestSubscriptionHandler_Pay_ZeroAmount(t *testing.T) {
	h := NewSubscriptionHandler(&mockSubscriptionService{})

	w := serve("POST", "/subscriptions/:id/payments", "/subscriptions/sub-1/payments",
		jsonBody(map[string]float64{"amount": 0}), withAuth(h.Pay))

	assertError(t, w, http.StatusBadRequest, 10001)
}

func TestSubscriptionHandler_Get_NotFound(t *testing.T) {
	h := NewSubscriptionHandler(&mockSubscriptionService{err: service.ErrSubscriptionNotFound})

	w := serve("GET", "/subscriptions/:id", "/subscriptions/missing", nil, h.Get)

	assertError(t, w, http.StatusNotFound, 18001)
}
