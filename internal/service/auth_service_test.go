package service

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dumu-tech/digibill/internal/core"
)

const testSecret = "unit-test-secret"

func seedAdmin(t *testing.T, users core.AdminUserRepository, email, password, role string) *core.AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &core.AdminUser{Email: email, PasswordHash: string(hash), Role: role}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestLogin(t *testing.T) {
	repo := setupTestRepo(t)
	users := repo.AdminUserRepository()
	svc := NewAuthService(users, repo.BillRepository(), newFakeOTPStore(), nil, testSecret, true)
	ctx := context.Background()

	seedAdmin(t, users, "admin@example.com", "correct-horse", core.RoleAdmin)

	token, user, err := svc.Login(ctx, "Admin@Example.com ", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, core.RoleAdmin, user.Role)

	_, _, err = svc.Login(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestGenerateTokenCarriesClaims(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewAuthService(repo.AdminUserRepository(), repo.BillRepository(), newFakeOTPStore(), nil, testSecret, true)

	signed, err := svc.GenerateToken(&core.AdminUser{ID: "u-1", Email: "pos@example.com", Role: core.RoleBilling})
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "u-1", claims["user_id"])
	assert.Equal(t, "pos@example.com", claims["email"])
	assert.Equal(t, core.RoleBilling, claims["role"])
	assert.NotNil(t, claims["exp"])
}

func TestFakeOTPFlow(t *testing.T) {
	repo := setupTestRepo(t)
	store := newFakeOTPStore()
	svc := NewAuthService(repo.AdminUserRepository(), repo.BillRepository(), store, nil, testSecret, true)
	ctx := context.Background()

	require.NoError(t, svc.RequestOTP(ctx, "9900112233", ""))

	err := svc.VerifyOTP(ctx, "9900112233", "000000")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	// Re-requesting replaces the pending code, it does not stack.
	require.NoError(t, svc.RequestOTP(ctx, "9900112233", ""))
	require.NoError(t, svc.VerifyOTP(ctx, "9900112233", "123456"))

	// The code is consumed on success.
	err = svc.VerifyOTP(ctx, "9900112233", "123456")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegisterAndUpdateCredential(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewAuthService(repo.AdminUserRepository(), repo.BillRepository(), newFakeOTPStore(), nil, testSecret, true)
	ctx := context.Background()

	_, err := svc.Register(ctx, "new@example.com", "short", core.RoleAdmin)
	assert.True(t, core.IsValidation(err))

	user, err := svc.Register(ctx, "New@Example.com", "long-enough-pw", "billing")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, core.RoleBilling, user.Role)

	_, err = svc.Register(ctx, "new@example.com", "long-enough-pw", core.RoleAdmin)
	assert.True(t, core.IsValidation(err))

	_, err = svc.UpdateCredential(ctx, "new@example.com", "rotated-pw-123", core.RoleAdmin)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "new@example.com", "long-enough-pw")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, updated, err := svc.Login(ctx, "new@example.com", "rotated-pw-123")
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, updated.Role)
}

func TestRequestOTPChecksBillOwnership(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewAuthService(repo.AdminUserRepository(), repo.BillRepository(), newFakeOTPStore(), nil, testSecret, true)
	ctx := context.Background()

	bill := &core.Bill{
		CustomerData:      core.CustomerData{Phone: "9900112233"},
		TransactionalData: core.TransactionalData{InvoiceNumber: "INV-OTP", InvDate: "01/06/2025"},
	}
	require.NoError(t, repo.BillRepository().Create(ctx, bill))

	require.NoError(t, svc.RequestOTP(ctx, "9900112233", bill.ID))

	err := svc.RequestOTP(ctx, "1112223344", bill.ID)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	err = svc.RequestOTP(ctx, "9900112233", "no-such-bill")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRequestOTPValidatesPhone(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewAuthService(repo.AdminUserRepository(), repo.BillRepository(), newFakeOTPStore(), nil, testSecret, true)

	err := svc.RequestOTP(context.Background(), "  ", "")
	assert.True(t, core.IsValidation(err))
}

func TestRealOTPIsDeliveredViaGateway(t *testing.T) {
	repo := setupTestRepo(t)
	store := newFakeOTPStore()
	gateway := newFakeSMS(false)
	svc := NewAuthService(repo.AdminUserRepository(), repo.BillRepository(), store, gateway, testSecret, false)
	ctx := context.Background()

	require.NoError(t, svc.RequestOTP(ctx, "8800112233", ""))

	code, err := store.Get(ctx, "8800112233")
	require.NoError(t, err)
	require.Len(t, code, 6)

	messages := gateway.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "otp:8800112233:"+code, messages[0])

	require.NoError(t, svc.VerifyOTP(ctx, "8800112233", code))
}
