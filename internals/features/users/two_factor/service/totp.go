package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	totpTokenPattern  = regexp.MustCompile(`^\d{6}$`)
	backupCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{4}-[A-Za-z0-9]{4}$`)
)

// RFC 6238 defaults that every mainstream authenticator app expects.
var totpValidateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateKey creates a 20-byte base32 secret and its otpauth:// URI.
func GenerateKey(issuer, account string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      30,
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
}

// ValidateTOTP checks code against secret at t, one step either side.
func ValidateTOTP(code, secret string, t time.Time) bool {
	if !totpTokenPattern.MatchString(code) || strings.TrimSpace(secret) == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t.UTC(), totpValidateOpts)
	return err == nil && ok
}

func IsTOTPFormat(code string) bool { return totpTokenPattern.MatchString(code) }

func IsBackupCodeFormat(code string) bool { return backupCodePattern.MatchString(code) }
