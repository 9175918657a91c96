package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/dumu-tech/digibill/internal/core"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const fakeOTPCode = "123456"

// AuthService owns console logins, credential management and customer
// phone verification
type AuthService struct {
	users      core.AdminUserRepository
	bills      core.BillRepository
	otps       core.OTPStore
	sms        core.SMSGateway
	jwtSecret  string
	useFakeOTP bool
}

// NewAuthService creates a new auth service
func NewAuthService(users core.AdminUserRepository, bills core.BillRepository, otps core.OTPStore, sms core.SMSGateway, jwtSecret string, useFakeOTP bool) *AuthService {
	return &AuthService{
		users:      users,
		bills:      bills,
		otps:       otps,
		sms:        sms,
		jwtSecret:  jwtSecret,
		useFakeOTP: useFakeOTP,
	}
}

// Register creates a new console or POS credential
func (s *AuthService) Register(ctx context.Context, email, password, role string) (*core.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, core.NewValidationError("email", "email is required")
	}
	if len(password) < 8 {
		return nil, core.NewValidationError("password", "password must be at least 8 characters")
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		role = core.RoleAdmin
	}
	if role != core.RoleAdmin && role != core.RoleBilling {
		return nil, core.NewValidationError("role", "role must be ADMIN or BILLING")
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, core.NewValidationError("email", "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &core.AdminUser{Email: email, PasswordHash: string(hash), Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateCredential rotates the password (and optionally the role) of an
// existing credential, identified by email
func (s *AuthService) UpdateCredential(ctx context.Context, email, newPassword, role string) (*core.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, core.NewValidationError("email", "email is required")
	}
	if len(newPassword) < 8 {
		return nil, core.NewValidationError("password", "password must be at least 8 characters")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if role = strings.ToUpper(strings.TrimSpace(role)); role != "" {
		if role != core.RoleAdmin && role != core.RoleBilling {
			return nil, core.NewValidationError("role", "role must be ADMIN or BILLING")
		}
		user.Role = role
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies a console credential and returns a signed token plus the
// authenticated user
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *core.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, core.NewValidationError("email", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, core.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, core.ErrUnauthorized
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GenerateToken signs a 7-day HS256 token for a credential
func (s *AuthService) GenerateToken(user *core.AdminUser) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// RequestOTP generates a 6-digit code for a phone, stores it with a short
// expiry and texts it out. Requesting again replaces the pending code. When
// a billID is supplied the phone must be the one on that bill. In fake mode
// the code is fixed and no SMS leaves the system, so local and staging
// setups work without a gateway account.
func (s *AuthService) RequestOTP(ctx context.Context, phone, billID string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return core.NewValidationError("phone", "phone is required")
	}
	if billID != "" {
		bill, err := s.bills.GetByID(ctx, billID)
		if err != nil {
			return err
		}
		if bill.CustomerData.Phone != phone {
			return core.ErrUnauthorized
		}
	}

	code := fakeOTPCode
	if !s.useFakeOTP {
		generated, err := generateOTP()
		if err != nil {
			return err
		}
		code = generated
	}

	if err := s.otps.Put(ctx, phone, code); err != nil {
		return err
	}

	if !s.useFakeOTP && s.sms != nil {
		if err := s.sms.SendOTP(ctx, phone, code); err != nil {
			log.Printf("failed to send otp sms to %s: %v", phone, err)
			return fmt.Errorf("failed to deliver otp: %w", core.ErrUpstream)
		}
	}
	return nil
}

// VerifyOTP checks a submitted code against the pending one and consumes
// it on success
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string) error {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return core.NewValidationError("otp", "phone and otp are required")
	}

	stored, err := s.otps.Get(ctx, phone)
	if err != nil {
		return err
	}
	if stored != code {
		return core.ErrUnauthorized
	}

	if err := s.otps.Delete(ctx, phone); err != nil {
		log.Printf("failed to clear otp for %s: %v", phone, err)
	}
	return nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
