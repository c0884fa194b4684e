package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quantiva/customers-api/internal/domain"
	"github.com/quantiva/customers-api/internal/service"
	"github.com/quantiva/customers-api/internal/transport/mail"
	"github.com/quantiva/customers-api/internal/util"
)

type stubCustomerService struct {
	registerInput service.RegisterInput
	registerRes   *service.RegisterResult
	registerErr   error

	verifyErr error

	loginRes *service.LoginResult
	loginErr error

	resetRequests []string
	resetErr      error

	validateErr error
	resetPwErr  error

	changeID  uuid.UUID
	changeErr error

	claims  *util.Claims
	authErr error

	customer *domain.Customer
	getErr   error
	list     []domain.Customer
	listErr  error
}

func (s *stubCustomerService) Authenticate(ctx context.Context, token string) (*util.Claims, error) {
	return s.claims, s.authErr
}

func (s *stubCustomerService) Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
	s.registerInput = in
	return s.registerRes, s.registerErr
}

func (s *stubCustomerService) VerifyCode(ctx context.Context, email, code string) (*domain.Customer, error) {
	return s.customer, s.verifyErr
}

func (s *stubCustomerService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	return s.loginRes, s.loginErr
}

func (s *stubCustomerService) RequestPasswordReset(ctx context.Context, email string) (*service.ResetRequestResult, error) {
	s.resetRequests = append(s.resetRequests, email)
	if s.resetErr != nil {
		return nil, s.resetErr
	}
	return &service.ResetRequestResult{}, nil
}

func (s *stubCustomerService) ValidateResetToken(ctx context.Context, token string) error {
	return s.validateErr
}

func (s *stubCustomerService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	return s.resetPwErr
}

func (s *stubCustomerService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	s.changeID = id
	return s.changeErr
}

func (s *stubCustomerService) Profile(ctx context.Context, claims *util.Claims) (*domain.Customer, error) {
	return s.customer, s.getErr
}

func (s *stubCustomerService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return s.customer, s.getErr
}

func (s *stubCustomerService) ListAll(ctx context.Context) ([]domain.Customer, error) {
	return s.list, s.listErr
}

func newTestServer(svc CustomerService) *echo.Echo {
	e := NewRouter([]string{"*"}, zap.NewNop())
	RegisterCustomers(e, svc, zap.NewNop())
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func sampleCustomer() *domain.Customer {
	return &domain.Customer{
		ID:           uuid.MustParse("6f1c2d3e-4a5b-4c6d-8e7f-9a0b1c2d3e4f"),
		Nombres:      "Ana",
		Apellidos:    "Lopez",
		Email:        "ana@example.com",
		PasswordHash: "$2a$10$secret",
	}
}

func TestRegisterHandler(t *testing.T) {
	svc := &stubCustomerService{registerRes: &service.RegisterResult{Customer: sampleCustomer()}}
	e := newTestServer(svc)

	rec, body := doJSON(t, e, http.MethodPost, "/api/customers/created",
		`{"nombres":"Ana","apellidos":"Lopez","email":" ana@example.com ","password":"pw123456"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ana@example.com", svc.registerInput.Email)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ana@example.com", data["email"])
	assert.NotContains(t, data, "password_hash")
	assert.NotContains(t, rec.Body.String(), "$2a$10$secret")
}

func TestRegisterHandlerAcceptsLegacyPasswordField(t *testing.T) {
	svc := &stubCustomerService{registerRes: &service.RegisterResult{Customer: sampleCustomer()}}
	e := newTestServer(svc)

	rec, _ := doJSON(t, e, http.MethodPost, "/api/customers/created",
		`{"nombres":"Ana","apellidos":"Lopez","email":"ana@example.com","password_hash":"pw123456"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pw123456", svc.registerInput.Password)
}

func TestRegisterHandlerErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{"missing fields", `{"nombres":"Ana","email":"ana@example.com","password":"x"}`, nil, http.StatusBadRequest, msgMissingFields},
		{"bad email", `{"nombres":"Ana","apellidos":"Lopez","email":"nope","password":"x"}`, nil, http.StatusBadRequest, msgInvalidEmail},
		{"duplicate", `{"nombres":"Ana","apellidos":"Lopez","email":"ana@example.com","password":"x"}`, service.ErrDuplicateEmail, http.StatusConflict, "El correo ya está registrado"},
		{"blank after trim", `{"nombres":" ","apellidos":"Lopez","email":"ana@example.com","password":"x"}`, service.ErrMissingFields, http.StatusBadRequest, msgMissingFields},
		{"store down", `{"nombres":"Ana","apellidos":"Lopez","email":"ana@example.com","password":"x"}`, fmt.Errorf("%w: boom", service.ErrStoreUnavailable), http.StatusInternalServerError, msgInternal},
		{"password too long", `{"nombres":"Ana","apellidos":"Lopez","email":"ana@example.com","password":"x"}`, service.ErrPasswordTooLong, http.StatusBadRequest, "La contraseña supera la longitud máxima"},
		{"malformed json", `{"nombres":`, nil, http.StatusBadRequest, msgInvalidBody},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestServer(&stubCustomerService{registerErr: tc.err})
			rec, body := doJSON(t, e, http.MethodPost, "/api/customers/created", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestRegisterHandlerMailWarning(t *testing.T) {
	svc := &stubCustomerService{registerRes: &service.RegisterResult{
		Customer:    sampleCustomer(),
		MailWarning: errors.New("smtp down"),
	}}
	e := newTestServer(svc)

	rec, body := doJSON(t, e, http.MethodPost, "/api/customers/created",
		`{"nombres":"Ana","apellidos":"Lopez","email":"ana@example.com","password":"pw123456"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "mail_not_sent", body["warning"])
	assert.NotContains(t, rec.Body.String(), "smtp down")
}

func TestRegisterHandlerMailPending(t *testing.T) {
	svc := &stubCustomerService{registerRes: &service.RegisterResult{
		Customer:    sampleCustomer(),
		MailWarning: fmt.Errorf("%w: %w", mail.ErrDeliveryPending, context.Canceled),
	}}
	e := newTestServer(svc)

	rec, body := doJSON(t, e, http.MethodPost, "/api/customers/created",
		`{"nombres":"Ana","apellidos":"Lopez","email":"ana@example.com","password":"pw123456"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "mail_pending", body["warning"])
	assert.NotContains(t, rec.Body.String(), "canceled")
}

func TestMalformedBodiesAnswerInSpanish(t *testing.T) {
	e := newTestServer(&stubCustomerService{})
	for _, path := range []string{
		"/api/customers/verify-code",
		"/api/customers/login",
		"/api/customers/validate-reset-token",
		"/api/customers/reset-password",
	} {
		rec, body := doJSON(t, e, http.MethodPost, path, `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, msgInvalidBody, body["message"], path)
	}
}

func TestVerifyCodeHandlerStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrAlreadyVerified, http.StatusBadRequest},
		{service.ErrCodeMismatch, http.StatusBadRequest},
		{service.ErrCodeExpired, http.StatusBadRequest},
	}
	for _, tc := range cases {
		e := newTestServer(&stubCustomerService{customer: sampleCustomer(), verifyErr: tc.err})
		rec, _ := doJSON(t, e, http.MethodPost, "/api/customers/verify-code", `{"email":"ana@example.com","codigo":"123456"}`)
		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}

	e := newTestServer(&stubCustomerService{})
	rec, body := doJSON(t, e, http.MethodPost, "/api/customers/verify-code", `{"email":"ana@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Correo y código son obligatorio", body["message"])
}

func TestLoginHandler(t *testing.T) {
	expires := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	svc := &stubCustomerService{loginRes: &service.LoginResult{
		Customer:  sampleCustomer(),
		Token:     "signed.jwt.token",
		ExpiresAt: expires,
	}}
	e := newTestServer(svc)

	rec, body := doJSON(t, e, http.MethodPost, "/api/customers/login", `{"email":"ana@example.com","password":"pw123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "signed.jwt.token", data["token"])
	assert.Equal(t, sampleCustomer().ID.String(), data["id_uuid"])
	assert.Equal(t, "2024-03-01T13:00:00Z", data["expires_at"])

	cases := []struct {
		err    error
		status int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrNotVerified, http.StatusForbidden},
		{service.ErrWrongPassword, http.StatusUnauthorized},
		{fmt.Errorf("%w: timeout", service.ErrStoreUnavailable), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := newTestServer(&stubCustomerService{loginErr: tc.err})
		rec, _ := doJSON(t, e, http.MethodPost, "/api/customers/login", `{"email":"ana@example.com","password":"pw123456"}`)
		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}
}

func TestForgotPasswordHandlerIsGeneric(t *testing.T) {
	svc := &stubCustomerService{}
	e := newTestServer(svc)

	recKnown, _ := doJSON(t, e, http.MethodPost, "/api/customers/forgot-password", `{"email":"ana@example.com"}`)
	recUnknown, _ := doJSON(t, e, http.MethodPost, "/api/customers/forgot-password", `{"email":"nobody@example.com"}`)
	recBlank, _ := doJSON(t, e, http.MethodPost, "/api/customers/forgot-password", `{}`)

	assert.Equal(t, http.StatusOK, recKnown.Code)
	assert.Equal(t, recKnown.Code, recUnknown.Code)
	assert.Equal(t, recKnown.Body.String(), recUnknown.Body.String())
	assert.Equal(t, recKnown.Body.String(), recBlank.Body.String())
	assert.Equal(t, []string{"ana@example.com", "nobody@example.com", ""}, svc.resetRequests)

	e = newTestServer(&stubCustomerService{resetErr: fmt.Errorf("%w: down", service.ErrStoreUnavailable)})
	rec, body := doJSON(t, e, http.MethodPost, "/api/customers/forgot-password", `{"email":"ana@example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternal, body["message"])
}

func TestResetTokenHandlers(t *testing.T) {
	e := newTestServer(&stubCustomerService{validateErr: service.ErrTokenExpired})
	rec, body := doJSON(t, e, http.MethodPost, "/api/customers/validate-reset-token", `{"token":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "El enlace ha expirado", body["message"])

	e = newTestServer(&stubCustomerService{})
	rec, body = doJSON(t, e, http.MethodPost, "/api/customers/validate-reset-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Token requerido", body["message"])

	e = newTestServer(&stubCustomerService{resetPwErr: service.ErrPasswordMismatch})
	rec, body = doJSON(t, e, http.MethodPost, "/api/customers/reset-password",
		`{"token":"abc","password":"newpass99","confirmPassword":"newpass98"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Las contraseñas no coinciden", body["message"])

	e = newTestServer(&stubCustomerService{resetPwErr: service.ErrTokenNotFound})
	rec, body = doJSON(t, e, http.MethodPost, "/api/customers/reset-password",
		`{"token":"abc","password":"newpass99","confirmPassword":"newpass99"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Token inválido o expirado", body["message"])

	e = newTestServer(&stubCustomerService{resetPwErr: service.ErrPasswordTooLong})
	rec, body = doJSON(t, e, http.MethodPost, "/api/customers/reset-password",
		`{"token":"abc","password":"newpass99","confirmPassword":"newpass99"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "La contraseña supera la longitud máxima", body["message"])

	e = newTestServer(&stubCustomerService{})
	rec, _ = doJSON(t, e, http.MethodPost, "/api/customers/reset-password",
		`{"token":"abc","password":"newpass99","confirmPassword":"newpass99"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfileRequiresBearer(t *testing.T) {
	claims := &util.Claims{CustomerID: sampleCustomer().ID, Email: "ana@example.com"}

	e := newTestServer(&stubCustomerService{claims: claims, customer: sampleCustomer()})
	rec, body := doJSON(t, e, http.MethodGet, "/api/customers/perfil", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token no proporcionado", body["message"])

	e = newTestServer(&stubCustomerService{authErr: service.ErrInvalidToken})
	rec, body = doJSON(t, e, http.MethodGet, "/api/customers/perfil", "", echo.HeaderAuthorization, "Bearer forged")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Token inválido", body["message"])

	e = newTestServer(&stubCustomerService{claims: claims, customer: sampleCustomer()})
	rec, body = doJSON(t, e, http.MethodGet, "/api/customers/perfil", "", echo.HeaderAuthorization, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Perfil obtenido correctamente", body["message"])
}

func TestChangePasswordHandler(t *testing.T) {
	claims := &util.Claims{CustomerID: sampleCustomer().ID, Email: "ana@example.com"}
	svc := &stubCustomerService{claims: claims}
	e := newTestServer(svc)

	rec, _ := doJSON(t, e, http.MethodPut, "/api/customers/password",
		`{"currentPassword":"pw123456","newPassword":"newpass99"}`, echo.HeaderAuthorization, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, claims.CustomerID, svc.changeID)

	e = newTestServer(&stubCustomerService{claims: claims, changeErr: service.ErrWrongPassword})
	rec, _ = doJSON(t, e, http.MethodPut, "/api/customers/password",
		`{"currentPassword":"nope","newPassword":"newpass99"}`, echo.HeaderAuthorization, "Bearer good")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetByIDHandler(t *testing.T) {
	e := newTestServer(&stubCustomerService{customer: sampleCustomer()})
	rec, body := doJSON(t, e, http.MethodGet, "/api/customers/one/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "El ID Proporcionado es incorrecto", body["message"])

	rec, _ = doJSON(t, e, http.MethodGet, "/api/customers/one/"+sampleCustomer().ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	e = newTestServer(&stubCustomerService{getErr: service.ErrNotFound})
	rec, _ = doJSON(t, e, http.MethodGet, "/api/customers/one/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAllHandler(t *testing.T) {
	e := newTestServer(&stubCustomerService{list: []domain.Customer{*sampleCustomer()}})
	rec, body := doJSON(t, e, http.MethodGet, "/api/customers/all", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)
}

type stubChecker struct {
	health *domain.DatabaseHealth
	err    error
}

func (s stubChecker) CheckDatabase(ctx context.Context) (*domain.DatabaseHealth, error) {
	return s.health, s.err
}

func TestHealthDBHandler(t *testing.T) {
	ip := "10.0.0.5"
	e := NewRouter([]string{"*"}, zap.NewNop())
	RegisterHealth(e, stubChecker{health: &domain.DatabaseHealth{Database: "quantiva", ServerIP: &ip}}, zap.NewNop())

	rec, body := doJSON(t, e, http.MethodGet, "/health/db", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "quantiva", body["database"])
	assert.Equal(t, ip, body["server_ip"])

	e = NewRouter([]string{"*"}, zap.NewNop())
	RegisterHealth(e, stubChecker{err: errors.New("refused")}, zap.NewNop())
	rec, body = doJSON(t, e, http.MethodGet, "/health/db", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Database connection failed", body["message"])
}

func TestSanitizeBodyRedactsSecrets(t *testing.T) {
	body := []byte(`{"email":"ana@example.com","password":"pw123456","confirmPassword":"pw123456","codigo":"123456","data":{"token":"abc"}}`)
	got := sanitizeBody(body, echo.MIMEApplicationJSON).(map[string]any)

	assert.Equal(t, "ana@example.com", got["email"])
	assert.Equal(t, redacted, got["password"])
	assert.Equal(t, redacted, got["confirmPassword"])
	assert.Equal(t, redacted, got["codigo"])
	assert.Equal(t, redacted, got["data"].(map[string]any)["token"])

	form := sanitizeBody([]byte("email=a%40b.com&password=x"), echo.MIMEApplicationForm).(map[string]any)
	assert.Equal(t, redacted, form["password"])
	assert.Equal(t, "a@b.com", form["email"])
}
