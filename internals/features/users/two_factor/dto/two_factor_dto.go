package dto

import (
	"github.com/google/uuid"
)

type VerifySetupRequest struct {
	Token string `json:"token" validate:"required,len=6,numeric"`
}

// VerifyLoginRequest is posted to the public verify endpoint. ChallengeToken
// comes from the login response and, when present, exchanges for a session.
// userId, isBackupCode and challengeToken are accepted as well.
type VerifyLoginRequest struct {
	UserID         uuid.UUID `json:"user_id" validate:"required"`
	Token          string    `json:"token" validate:"required"`
	IsBackupCode   bool      `json:"is_backup_code"`
	ChallengeToken string    `json:"challenge_token"`

	UserIDAlt         uuid.UUID `json:"userId"`
	IsBackupCodeAlt   bool      `json:"isBackupCode"`
	ChallengeTokenAlt string    `json:"challengeToken"`
}

func (r *VerifyLoginRequest) Normalize() {
	if r.UserID == uuid.Nil {
		r.UserID = r.UserIDAlt
	}
	r.IsBackupCode = r.IsBackupCode || r.IsBackupCodeAlt
	if r.ChallengeToken == "" {
		r.ChallengeToken = r.ChallengeTokenAlt
	}
}

type DisableRequest struct {
	Password string `json:"password"`
	Token    string `json:"token"`
}

type RegenerateBackupCodesRequest struct {
	Password string `json:"password"`
	Token    string `json:"token"`
}

type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
	Warning     string   `json:"warning"`
}

type VerifyLoginResponse struct {
	Verified             bool   `json:"verified"`
	Method               string `json:"method"`
	RemainingBackupCodes *int   `json:"remaining_backup_codes,omitempty"`
	Session              any    `json:"session,omitempty"`
}

const backupCodesWarning = "Guarde estes códigos em local seguro. Eles não serão exibidos novamente."

func NewBackupCodesResponse(codes []string) BackupCodesResponse {
	return BackupCodesResponse{BackupCodes: codes, Warning: backupCodesWarning}
}
