package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantiva/customers-api/internal/domain"
	"github.com/quantiva/customers-api/internal/repository/ports"
	"github.com/quantiva/customers-api/internal/util"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Generate(customerID uuid.UUID, email string) (string, time.Time, error)
	Parse(token string) (*util.Claims, error)
}

type ResetTokenGenerator interface {
	Generate() (raw string, hash string, err error)
	HashForLookup(raw string) string
}

// CustomerNotifier delivers the out-of-band secrets. Implementations must not
// return before the delivery attempt has finished.
type CustomerNotifier interface {
	SendVerificationCode(ctx context.Context, email, name, code string) error
	SendPasswordReset(ctx context.Context, email, rawToken string) error
}

type CodeGenerator func(digits int) (string, error)

// maxPasswordBytes is the longest input bcrypt hashes.
const maxPasswordBytes = 72

type CustomerServiceConfig struct {
	VerificationTTL   time.Duration
	CodeLength        int
	ResetTTL          time.Duration
	MinPasswordLength int
}

func (c CustomerServiceConfig) withDefaults() CustomerServiceConfig {
	if c.VerificationTTL <= 0 {
		c.VerificationTTL = 10 * time.Minute
	}
	if c.CodeLength <= 0 {
		c.CodeLength = util.DefaultCodeLength
	}
	if c.ResetTTL <= 0 {
		c.ResetTTL = 15 * time.Minute
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = 8
	}
	return c
}

type CustomerService struct {
	customers ports.CustomerRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	resets    ResetTokenGenerator
	notifier  CustomerNotifier
	codes     CodeGenerator
	clock     util.Clock
	logger    *zap.Logger
	cfg       CustomerServiceConfig
}

type RegisterInput struct {
	Nombres   string
	Apellidos string
	Email     string
	Password  string
}

type RegisterResult struct {
	Customer *domain.Customer
	// MailWarning is set when the account was stored but the verification
	// email could not be delivered.
	MailWarning error
}

// ResetRequestResult is the same for known and unknown emails apart from
// MailWarning, which must never reach the client.
type ResetRequestResult struct {
	MailWarning error
}

type LoginResult struct {
	Customer  *domain.Customer
	Token     string
	ExpiresAt time.Time
}

func NewCustomerService(
	customers ports.CustomerRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	resets ResetTokenGenerator,
	notifier CustomerNotifier,
	clock util.Clock,
	logger *zap.Logger,
	cfg CustomerServiceConfig,
) *CustomerService {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		customers: customers,
		hasher:    hasher,
		tokens:    tokens,
		resets:    resets,
		notifier:  notifier,
		codes:     util.GenerateNumericOTP,
		clock:     clock,
		logger:    logger,
		cfg:       cfg.withDefaults(),
	}
}

// Register creates an unverified customer with a fresh verification code and
// mails the code. A failed delivery does not undo the registration.
func (s *CustomerService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	nombres := strings.TrimSpace(in.Nombres)
	apellidos := strings.TrimSpace(in.Apellidos)
	email := normalizeEmail(in.Email)
	if nombres == "" || apellidos == "" || email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, ErrMissingFields
	}
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, err := s.codes(s.cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate verification code: %w", err)
	}

	customer, err := s.customers.Create(ctx, ports.CreateCustomerParams{
		Nombres:             nombres,
		Apellidos:           apellidos,
		Email:               email,
		PasswordHash:        hash,
		VerificationCode:    code,
		VerificationExpires: s.clock.Now().Add(s.cfg.VerificationTTL),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, storeError("create customer", err)
	}
	s.logger.Info("customer registered", zap.String("customer_id", customer.ID.String()))

	result := &RegisterResult{Customer: customer}
	if err := s.notifier.SendVerificationCode(ctx, customer.Email, customer.Nombres, code); err != nil {
		s.logger.Warn("verification email not delivered",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err))
		result.MailWarning = err
	}
	return result, nil
}

// VerifyCode moves an unverified customer to verified. The checks run in a
// fixed order so callers can tell the failures apart.
func (s *CustomerService) VerifyCode(ctx context.Context, email, code string) (*domain.Customer, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, ErrMissingFields
	}

	customer, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if customer.Verified {
		return nil, ErrAlreadyVerified
	}
	if customer.VerificationCode == nil ||
		subtle.ConstantTimeCompare([]byte(*customer.VerificationCode), []byte(code)) != 1 {
		return nil, ErrCodeMismatch
	}
	if customer.VerificationExpired(s.clock.Now()) {
		return nil, ErrCodeExpired
	}

	updated, err := s.customers.MarkVerified(ctx, customer.Email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storeError("mark verified", err)
	}
	s.logger.Info("customer verified", zap.String("customer_id", updated.ID.String()))
	return updated, nil
}

// Login distinguishes unknown, unverified and wrong-password failures. The
// unverified check runs before the password is looked at.
func (s *CustomerService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	customer, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !customer.Verified {
		return nil, ErrNotVerified
	}
	if !s.hasher.Verify(password, customer.PasswordHash) {
		return nil, ErrWrongPassword
	}

	token, expiresAt, err := s.tokens.Generate(customer.ID, customer.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Customer: customer, Token: token, ExpiresAt: expiresAt}, nil
}

// RequestPasswordReset gives the same result for unknown and blank emails so
// the caller cannot learn whether an account exists. Only store failures surface.
func (s *CustomerService) RequestPasswordReset(ctx context.Context, email string) (*ResetRequestResult, error) {
	result := &ResetRequestResult{}
	email = normalizeEmail(email)
	if email == "" {
		return result, nil
	}

	customer, err := s.customers.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return result, nil
		}
		return nil, storeError("find customer", err)
	}

	raw, hash, err := s.resets.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}
	expiresAt := s.clock.Now().Add(s.cfg.ResetTTL)
	if err := s.customers.SaveResetToken(ctx, customer.Email, hash, expiresAt); err != nil {
		if isNotFound(err) {
			return result, nil
		}
		return nil, storeError("save reset token", err)
	}
	s.logger.Info("password reset requested", zap.String("customer_id", customer.ID.String()))

	if err := s.notifier.SendPasswordReset(ctx, customer.Email, raw); err != nil {
		s.logger.Warn("password reset email not delivered",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err))
		result.MailWarning = err
	}
	return result, nil
}

// ValidateResetToken checks a presented reset token without consuming it.
func (s *CustomerService) ValidateResetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingFields
	}
	_, err := s.lookupResetToken(ctx, token)
	return err
}

// ResetPassword consumes a reset token. The new hash is written and both
// reset fields are cleared by a single repository call that only succeeds
// while the token is still outstanding.
func (s *CustomerService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" || confirmPassword == "" {
		return ErrMissingFields
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if err := s.checkPasswordLength(newPassword); err != nil {
		return err
	}

	customer, err := s.lookupResetToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.customers.ConsumeResetToken(ctx, customer.ID, s.resets.HashForLookup(token), hash); err != nil {
		if isNotFound(err) {
			return ErrTokenNotFound
		}
		return storeError("update password", err)
	}
	s.logger.Info("password reset completed", zap.String("customer_id", customer.ID.String()))
	return nil
}

// ChangePassword replaces the password of an authenticated customer and
// drops any outstanding reset token.
func (s *CustomerService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return ErrMissingFields
	}
	customer, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, customer.PasswordHash) {
		return ErrWrongPassword
	}
	if err := s.checkPasswordLength(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.customers.UpdatePassword(ctx, customer.ID, hash); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return storeError("update password", err)
	}
	s.logger.Info("password changed", zap.String("customer_id", customer.ID.String()))
	return nil
}

// Authenticate validates a bearer token and returns its claims.
func (s *CustomerService) Authenticate(ctx context.Context, token string) (*util.Claims, error) {
	claims, err := s.tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, util.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// Profile returns the customer behind an authenticated token.
func (s *CustomerService) Profile(ctx context.Context, claims *util.Claims) (*domain.Customer, error) {
	if claims == nil {
		return nil, ErrInvalidToken
	}
	return s.GetByID(ctx, claims.CustomerID)
}

func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidID
	}
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storeError("find customer", err)
	}
	return customer, nil
}

func (s *CustomerService) ListAll(ctx context.Context) ([]domain.Customer, error) {
	customers, err := s.customers.ListAll(ctx)
	if err != nil {
		return nil, storeError("list customers", err)
	}
	return customers, nil
}

func (s *CustomerService) findByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	customer, err := s.customers.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storeError("find customer", err)
	}
	return customer, nil
}

func (s *CustomerService) lookupResetToken(ctx context.Context, raw string) (*domain.Customer, error) {
	customer, err := s.customers.FindByResetTokenHash(ctx, s.resets.HashForLookup(raw))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTokenNotFound
		}
		return nil, storeError("find reset token", err)
	}
	if customer.ResetTokenExpires == nil || s.clock.Now().After(*customer.ResetTokenExpires) {
		return nil, ErrTokenExpired
	}
	return customer, nil
}

func (s *CustomerService) checkPasswordLength(password string) error {
	if utf8.RuneCountInString(password) < s.cfg.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
