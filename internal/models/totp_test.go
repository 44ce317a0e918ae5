package models

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestNewTOTPEnrollment(t *testing.T) {
	enrollment, err := NewTOTPEnrollment("carol")
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Equal(t, "carol", enrollment.AccountName)
	require.True(t, strings.HasPrefix(enrollment.QRDataURI, "data:image/png;base64,"))

	// A code minted from the enrollment secret must verify.
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.True(t, VerifyTOTPCode(enrollment.Secret, code))
	require.False(t, VerifyTOTPCode(enrollment.Secret, "000000"))
}
