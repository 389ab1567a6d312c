package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"onboarding_backend/internals/constants"
	authHelper "onboarding_backend/internals/features/users/auth/helper"
	userModel "onboarding_backend/internals/features/users/user/model"
	helper "onboarding_backend/internals/helpers"
	"onboarding_backend/internals/helpers/apperr"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "s3nha-forte"

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	users *fakeUsers
	audit *fakeAudit
	user  *userModel.UserModel
	actor helper.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hash, err := authHelper.HashPassword(testPassword)
	require.NoError(t, err)

	u := &userModel.UserModel{
		ID:              uuid.New(),
		Name:            "Ana",
		Email:           "ana@example.com",
		Password:        hash,
		PermissionLevel: constants.PermissionAnalyst,
		IsActive:        true,
	}
	users := newFakeUsers(u)
	audit := &fakeAudit{}
	return &fixture{
		svc: &Service{
			Users:    users,
			Audit:    audit,
			Issuer:   "SABER Onboarding",
			QRFormat: QRFormatPNG,
			Now:      func() time.Time { return fixedNow },
		},
		users: users,
		audit: audit,
		user:  u,
		actor: helper.Actor{ID: u.ID, Email: u.Email},
	}
}

func code(t *testing.T, secret string) string {
	t.Helper()
	c, err := totp.GenerateCode(secret, fixedNow)
	require.NoError(t, err)
	return c
}

// wrongCode returns a well-formed code that fails validation at fixedNow.
func wrongCode(t *testing.T, secret string) string {
	t.Helper()
	for i := 0; i < 1000; i++ {
		c := fmt.Sprintf("%06d", i)
		if !ValidateTOTP(c, secret, fixedNow) {
			return c
		}
	}
	t.Fatal("no invalid code found")
	return ""
}

// enable runs setup + verify-setup and returns secret and backup codes.
func (f *fixture) enable(t *testing.T) (string, []string) {
	t.Helper()
	ctx := context.Background()
	res, err := f.svc.Setup(ctx, f.user.ID)
	require.NoError(t, err)
	codes, err := f.svc.VerifySetup(ctx, f.actor, code(t, res.Secret))
	require.NoError(t, err)
	return res.Secret, codes
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.Status(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, Status{}, *st)

	f.enable(t)
	st, err = f.svc.Status(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.True(t, st.HasBackupCodes)
	assert.Equal(t, BackupCodeCount, st.BackupCodesCount)

	_, err = f.svc.Status(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetupStoresPendingSecret(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Setup(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, res.Secret, 32) // 20 bytes base32
	assert.True(t, strings.HasPrefix(res.OTPAuthURL, "otpauth://totp/"))
	assert.Contains(t, res.OTPAuthURL, "issuer=SABER")
	assert.True(t, strings.HasPrefix(res.QRCode, "data:image/png;base64,"))

	stored := f.users.get(f.user.ID)
	require.NotNil(t, stored.TwoFactorSecret)
	assert.Equal(t, res.Secret, *stored.TwoFactorSecret)
	assert.False(t, stored.TwoFactorEnabled)
}

func TestSetupTwiceReplacesPendingSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Setup(ctx, f.user.ID)
	require.NoError(t, err)
	second, err := f.svc.Setup(ctx, f.user.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	// a code from the abandoned secret no longer confirms enrollment
	_, err = f.svc.VerifySetup(ctx, f.actor, wrongCode(t, second.Secret))
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	_, err = f.svc.VerifySetup(ctx, f.actor, code(t, second.Secret))
	assert.NoError(t, err)
}

func TestSetupWhenEnabled(t *testing.T) {
	f := newFixture(t)
	f.enable(t)

	_, err := f.svc.Setup(context.Background(), f.user.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestVerifySetup(t *testing.T) {
	t.Run("bad format", func(t *testing.T) {
		f := newFixture(t)
		for _, tok := range []string{"", "12345", "1234567", "abcdef"} {
			_, err := f.svc.VerifySetup(context.Background(), f.actor, tok)
			assert.ErrorIs(t, err, apperr.ErrValidation, tok)
		}
	})

	t.Run("setup not started", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.VerifySetup(context.Background(), f.actor, "123456")
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("wrong token keeps secret pending", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.Setup(context.Background(), f.user.ID)
		require.NoError(t, err)

		_, err = f.svc.VerifySetup(context.Background(), f.actor, wrongCode(t, res.Secret))
		assert.ErrorIs(t, err, apperr.ErrInvalidToken)

		stored := f.users.get(f.user.ID)
		assert.False(t, stored.TwoFactorEnabled)
		assert.Equal(t, res.Secret, *stored.TwoFactorSecret)
	})

	t.Run("success issues hashed backup codes", func(t *testing.T) {
		f := newFixture(t)
		_, codes := f.enable(t)

		require.Len(t, codes, BackupCodeCount)
		stored := f.users.get(f.user.ID)
		assert.True(t, stored.TwoFactorEnabled)
		require.Len(t, stored.TwoFactorBackupCodes, BackupCodeCount)
		for i, c := range codes {
			assert.Regexp(t, `^[0-9A-F]{4}-[0-9A-F]{4}$`, c)
			assert.NotContains(t, stored.TwoFactorBackupCodes, c)
			assert.Equal(t, HashBackupCode(f.user.ID, CanonicalizeBackupCode(c)), stored.TwoFactorBackupCodes[i])
		}
		assert.Contains(t, f.audit.actions, constants.AuditTwoFactorEnabled)
	})

	t.Run("already enabled", func(t *testing.T) {
		f := newFixture(t)
		secret, _ := f.enable(t)
		_, err := f.svc.VerifySetup(context.Background(), f.actor, code(t, secret))
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})
}

func TestVerifyLoginNotConfigured(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, errUnknown := f.svc.VerifyLogin(ctx, uuid.New(), "123456", false, helper.Actor{})
	_, errDisabled := f.svc.VerifyLogin(ctx, f.user.ID, "123456", false, helper.Actor{})

	require.ErrorIs(t, errUnknown, apperr.ErrInvalidState)
	require.ErrorIs(t, errDisabled, apperr.ErrInvalidState)
	// same message, so the endpoint does not reveal which users exist
	assert.Equal(t, errUnknown.Error(), errDisabled.Error())
}

func TestVerifyLoginTOTP(t *testing.T) {
	f := newFixture(t)
	secret, _ := f.enable(t)
	ctx := context.Background()

	res, err := f.svc.VerifyLogin(ctx, f.user.ID, code(t, secret), false, helper.Actor{})
	require.NoError(t, err)
	assert.Equal(t, MethodTOTP, res.Method)
	assert.Nil(t, res.RemainingBackupCodes)

	_, err = f.svc.VerifyLogin(ctx, f.user.ID, wrongCode(t, secret), false, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.VerifyLogin(ctx, f.user.ID, "12ab56", false, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestVerifyLoginBackupCodeSingleUse(t *testing.T) {
	f := newFixture(t)
	_, codes := f.enable(t)
	ctx := context.Background()

	res, err := f.svc.VerifyLogin(ctx, f.user.ID, strings.ToLower(codes[3]), true, helper.Actor{})
	require.NoError(t, err)
	assert.Equal(t, MethodBackupCode, res.Method)
	require.NotNil(t, res.RemainingBackupCodes)
	assert.Equal(t, BackupCodeCount-1, *res.RemainingBackupCodes)
	assert.Contains(t, f.audit.actions, constants.AuditBackupCodeUsed)

	_, err = f.svc.VerifyLogin(ctx, f.user.ID, codes[3], true, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.VerifyLogin(ctx, f.user.ID, "ABCDEFGH", true, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Len(t, f.users.get(f.user.ID).TwoFactorBackupCodes, BackupCodeCount-1)
}

func TestVerifyLoginRateLimited(t *testing.T) {
	f := newFixture(t)
	secret, _ := f.enable(t)
	f.svc.Limiter = newCountingLimiter(3)
	ctx := context.Background()
	bad := wrongCode(t, secret)

	for i := 0; i < 3; i++ {
		_, err := f.svc.VerifyLogin(ctx, f.user.ID, bad, false, helper.Actor{})
		require.ErrorIs(t, err, apperr.ErrUnauthorized)
	}
	_, err := f.svc.VerifyLogin(ctx, f.user.ID, bad, false, helper.Actor{})
	require.ErrorIs(t, err, apperr.ErrTooManyRequests)

	// even the right code is refused until the window passes
	_, err = f.svc.VerifyLogin(ctx, f.user.ID, code(t, secret), false, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrTooManyRequests)
}

func TestVerifyLoginSuccessResetsLimiter(t *testing.T) {
	f := newFixture(t)
	secret, _ := f.enable(t)
	lim := newCountingLimiter(5)
	f.svc.Limiter = lim
	ctx := context.Background()

	_, err := f.svc.VerifyLogin(ctx, f.user.ID, wrongCode(t, secret), false, helper.Actor{})
	require.Error(t, err)
	assert.Equal(t, 1, lim.failures[f.user.ID.String()])

	_, err = f.svc.VerifyLogin(ctx, f.user.ID, code(t, secret), false, helper.Actor{})
	require.NoError(t, err)
	assert.Zero(t, lim.failures[f.user.ID.String()])
}

func TestDisable(t *testing.T) {
	t.Run("password required", func(t *testing.T) {
		f := newFixture(t)
		f.enable(t)
		err := f.svc.Disable(context.Background(), f.actor, "", "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("not enabled", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Disable(context.Background(), f.actor, testPassword, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("wrong password fails even with valid token", func(t *testing.T) {
		f := newFixture(t)
		secret, _ := f.enable(t)
		err := f.svc.Disable(context.Background(), f.actor, "errada", code(t, secret))
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		assert.True(t, f.users.get(f.user.ID).TwoFactorEnabled)
	})

	t.Run("supplied token must validate", func(t *testing.T) {
		f := newFixture(t)
		secret, _ := f.enable(t)
		err := f.svc.Disable(context.Background(), f.actor, testPassword, wrongCode(t, secret))
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("token mandatory when configured", func(t *testing.T) {
		f := newFixture(t)
		f.enable(t)
		f.svc.DisableRequiresToken = true
		err := f.svc.Disable(context.Background(), f.actor, testPassword, "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("clears everything", func(t *testing.T) {
		f := newFixture(t)
		f.enable(t)
		require.NoError(t, f.svc.Disable(context.Background(), f.actor, testPassword, ""))

		stored := f.users.get(f.user.ID)
		assert.False(t, stored.TwoFactorEnabled)
		assert.Nil(t, stored.TwoFactorSecret)
		assert.Empty(t, stored.TwoFactorBackupCodes)
		assert.Contains(t, f.audit.actions, constants.AuditTwoFactorDisabled)
	})
}

func TestRegenerateBackupCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegenerateBackupCodes(ctx, f.actor, testPassword, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.RegenerateBackupCodes(ctx, f.actor, testPassword, "123456")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	secret, old := f.enable(t)

	_, err = f.svc.RegenerateBackupCodes(ctx, f.actor, "errada", code(t, secret))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.svc.RegenerateBackupCodes(ctx, f.actor, testPassword, wrongCode(t, secret))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	fresh, err := f.svc.RegenerateBackupCodes(ctx, f.actor, testPassword, code(t, secret))
	require.NoError(t, err)
	require.Len(t, fresh, BackupCodeCount)
	assert.Contains(t, f.audit.actions, constants.AuditBackupCodesRegenerated)

	_, err = f.svc.VerifyLogin(ctx, f.user.ID, old[0], true, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.svc.VerifyLogin(ctx, f.user.ID, fresh[0], true, helper.Actor{})
	assert.NoError(t, err)
}
