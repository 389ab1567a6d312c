package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	BackupCodeCount = 10

	backupCodeAlphabet = "0123456789ABCDEF"
	backupCodeLength   = 8
)

// NewBackupCodes returns n plaintext codes formatted XXXX-XXXX.
func NewBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(codes) < n {
		raw, err := randomCode(backupCodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		codes = append(codes, FormatBackupCode(raw))
	}
	return codes, nil
}

func randomCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func FormatBackupCode(raw string) string {
	if len(raw) < 8 {
		return raw
	}
	mid := len(raw) / 2
	return raw[:mid] + "-" + raw[mid:]
}

// CanonicalizeBackupCode uppercases and drops separators, so "a1b2-c3d4"
// and "A1B2C3D4" hash the same.
func CanonicalizeBackupCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

// HashBackupCode is sha256(userID || 0x00 || canonical), hex encoded. The
// user id salts the hash so equal codes of two users never collide.
func HashBackupCode(userID uuid.UUID, canonical string) string {
	id := userID.String()
	data := make([]byte, 0, len(id)+1+len(canonical))
	data = append(data, id...)
	data = append(data, 0)
	data = append(data, canonical...)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashAll(userID uuid.UUID, codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, HashBackupCode(userID, CanonicalizeBackupCode(c)))
	}
	return out
}
