package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quantiva/customers-api/internal/domain"
	"github.com/quantiva/customers-api/internal/service"
	"github.com/quantiva/customers-api/internal/transport/mail"
	"github.com/quantiva/customers-api/internal/util"
)

const (
	msgInternal         = "Error interno del servidor"
	msgMissingFields    = "Faltan datos por completar"
	msgInvalidEmail     = "Correo inválido"
	msgGenericResetSent = "Si el correo existe, se enviarán instrucciones para restablecer la contraseña."
	msgInvalidBody      = "Cuerpo de solicitud inválido"
)

type CustomerService interface {
	Authenticator
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	VerifyCode(ctx context.Context, email, code string) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) (*service.ResetRequestResult, error)
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error
	ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error
	Profile(ctx context.Context, claims *util.Claims) (*domain.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	ListAll(ctx context.Context) ([]domain.Customer, error)
}

type CustomerHandler struct {
	customers CustomerService
	logger    *zap.Logger
}

// errorCase maps a service error to a response for one route.
type errorCase struct {
	target  error
	status  int
	message string
}

func RegisterCustomers(e *echo.Echo, customers CustomerService, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &CustomerHandler{customers: customers, logger: logger}

	g := e.Group("/api/customers")
	g.GET("/all", h.listAll)
	g.POST("/created", h.register)
	g.POST("/verify-code", h.verifyCode)
	g.GET("/one/:id", h.getByID)
	g.POST("/login", h.login)
	g.POST("/forgot-password", h.forgotPassword)
	g.POST("/validate-reset-token", h.validateResetToken)
	g.POST("/reset-password", h.resetPassword)

	protected := g.Group("", RequireAuth(customers))
	protected.GET("/perfil", h.profile)
	protected.PUT("/password", h.changePassword)
}

// listAll handles GET /api/customers/all
func (h *CustomerHandler) listAll(c echo.Context) error {
	customers, err := h.customers.ListAll(c.Request().Context())
	if err != nil {
		return h.fail(c, err, msgInternal)
	}
	return c.JSON(http.StatusOK, util.Data("Clientes obtenidos correctamente", customers))
}

// register handles POST /api/customers/created
func (h *CustomerHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(msgInvalidBody))
	}
	req.normalize()
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(bindingMessage(err, msgMissingFields)))
	}

	res, err := h.customers.Register(c.Request().Context(), service.RegisterInput{
		Nombres:   req.Nombres,
		Apellidos: req.Apellidos,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return h.fail(c, err, msgMissingFields,
			errorCase{service.ErrDuplicateEmail, http.StatusConflict, "El correo ya está registrado"},
		)
	}
	if errors.Is(res.MailWarning, mail.ErrDeliveryPending) {
		body := util.Data("Cliente registrado; el correo de verificación se está enviando.", res.Customer)
		body["warning"] = "mail_pending"
		return c.JSON(http.StatusCreated, body)
	}
	if res.MailWarning != nil {
		body := util.Data("Cliente registrado, pero no se pudo enviar el correo de verificación.", res.Customer)
		body["warning"] = "mail_not_sent"
		return c.JSON(http.StatusCreated, body)
	}
	return c.JSON(http.StatusCreated, util.Data("Cliente registrado y correo enviado.", res.Customer))
}

// verifyCode handles POST /api/customers/verify-code
func (h *CustomerHandler) verifyCode(c echo.Context) error {
	const missing = "Correo y código son obligatorio"
	var req VerifyCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(msgInvalidBody))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(missing))
	}

	customer, err := h.customers.VerifyCode(c.Request().Context(), req.Email, req.Codigo)
	if err != nil {
		return h.fail(c, err, missing,
			errorCase{service.ErrNotFound, http.StatusNotFound, "El correo no está registrado"},
			errorCase{service.ErrAlreadyVerified, http.StatusBadRequest, "Este correo ya fue verificado"},
			errorCase{service.ErrCodeMismatch, http.StatusBadRequest, "Código incorrecto"},
			errorCase{service.ErrCodeExpired, http.StatusBadRequest, "El código ha expirado"},
		)
	}
	return c.JSON(http.StatusOK, util.Data("Correo verificado correctamente", customer))
}

// getByID handles GET /api/customers/one/{id}
func (h *CustomerHandler) getByID(c echo.Context) error {
	const invalidID = "El ID Proporcionado es incorrecto"
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(invalidID))
	}

	customer, err := h.customers.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err, invalidID,
			errorCase{service.ErrNotFound, http.StatusNotFound, "El Cliente no existe"},
		)
	}
	return c.JSON(http.StatusOK, util.Data("Cliente encontrado correctamente", customer))
}

// login handles POST /api/customers/login
func (h *CustomerHandler) login(c echo.Context) error {
	const missing = "Correo y contraseña son obligatorios"
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(msgInvalidBody))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(missing))
	}

	res, err := h.customers.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err, missing,
			errorCase{service.ErrNotFound, http.StatusNotFound, "Correo no registrado"},
			errorCase{service.ErrNotVerified, http.StatusForbidden, "Correo no verificado"},
			errorCase{service.ErrWrongPassword, http.StatusUnauthorized, "Contraseña Incorrecta"},
		)
	}
	return c.JSON(http.StatusOK, util.Data("Login exitoso", LoginResponse{
		ID:        res.Customer.ID,
		Nombres:   res.Customer.Nombres,
		Apellidos: res.Customer.Apellidos,
		Email:     res.Customer.Email,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC(),
	}))
}

// forgotPassword handles POST /api/customers/forgot-password. The answer is
// the same whether or not the email exists.
func (h *CustomerHandler) forgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, util.Success(msgGenericResetSent))
	}
	if _, err := h.customers.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return h.fail(c, err, msgMissingFields)
	}
	return c.JSON(http.StatusOK, util.Success(msgGenericResetSent))
}

// validateResetToken handles POST /api/customers/validate-reset-token
func (h *CustomerHandler) validateResetToken(c echo.Context) error {
	const missing = "Token requerido"
	var req ResetTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(msgInvalidBody))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(missing))
	}

	if err := h.customers.ValidateResetToken(c.Request().Context(), req.Token); err != nil {
		return h.fail(c, err, missing,
			errorCase{service.ErrTokenNotFound, http.StatusBadRequest, "El enlace no es válido o ha expirado"},
			errorCase{service.ErrTokenExpired, http.StatusBadRequest, "El enlace ha expirado"},
		)
	}
	return c.JSON(http.StatusOK, util.Success("Token válido"))
}

// resetPassword handles POST /api/customers/reset-password
func (h *CustomerHandler) resetPassword(c echo.Context) error {
	const missing = "Datos incompletos"
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(msgInvalidBody))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(missing))
	}

	err := h.customers.ResetPassword(c.Request().Context(), req.Token, req.Password, req.ConfirmPassword)
	if err != nil {
		return h.fail(c, err, missing,
			errorCase{service.ErrTokenNotFound, http.StatusBadRequest, "Token inválido o expirado"},
			errorCase{service.ErrTokenExpired, http.StatusBadRequest, "El token ha expirado"},
		)
	}
	return c.JSON(http.StatusOK, util.Success("Contraseña actualizada correctamente"))
}

// profile handles GET /api/customers/perfil
func (h *CustomerHandler) profile(c echo.Context) error {
	claims, ok := CurrentClaims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("Token no proporcionado"))
	}
	customer, err := h.customers.Profile(c.Request().Context(), claims)
	if err != nil {
		return h.fail(c, err, msgMissingFields,
			errorCase{service.ErrNotFound, http.StatusNotFound, "Cliente no encontrado"},
		)
	}
	return c.JSON(http.StatusOK, util.Data("Perfil obtenido correctamente", customer))
}

// changePassword handles PUT /api/customers/password
func (h *CustomerHandler) changePassword(c echo.Context) error {
	claims, ok := CurrentClaims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("Token no proporcionado"))
	}
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(msgInvalidBody))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("Datos incompletos"))
	}

	err := h.customers.ChangePassword(c.Request().Context(), claims.CustomerID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return h.fail(c, err, "Datos incompletos",
			errorCase{service.ErrWrongPassword, http.StatusUnauthorized, "Contraseña actual incorrecta"},
			errorCase{service.ErrNotFound, http.StatusNotFound, "Cliente no encontrado"},
		)
	}
	return c.JSON(http.StatusOK, util.Success("Contraseña actualizada correctamente"))
}

// fail renders err using the route's cases first, then the shared validation
// messages. Anything else is a 500 with a generic message.
func (h *CustomerHandler) fail(c echo.Context, err error, missing string, cases ...errorCase) error {
	for _, ec := range cases {
		if errors.Is(err, ec.target) {
			return c.JSON(ec.status, util.Error(ec.message))
		}
	}
	if errors.Is(err, service.ErrValidation) {
		return c.JSON(http.StatusBadRequest, util.Error(validationMessage(err, missing)))
	}
	h.logger.Error("customer request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, util.Error(msgInternal))
}

func validationMessage(err error, missing string) string {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		return msgInvalidEmail
	case errors.Is(err, service.ErrInvalidID):
		return "El ID Proporcionado es incorrecto"
	case errors.Is(err, service.ErrPasswordMismatch):
		return "Las contraseñas no coinciden"
	case errors.Is(err, service.ErrPasswordTooShort):
		return "La contraseña no cumple la longitud mínima"
	case errors.Is(err, service.ErrPasswordTooLong):
		return "La contraseña supera la longitud máxima"
	default:
		return missing
	}
}

// bindingMessage turns validator failures into the route's message, calling
// out malformed emails separately.
func bindingMessage(err error, missing string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "email" {
				return msgInvalidEmail
			}
		}
	}
	return missing
}
