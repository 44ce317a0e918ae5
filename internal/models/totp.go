package models

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/pquerna/otp/totp"
)

// TOTPIssuer is the issuer name shown in authenticator apps.
const TOTPIssuer = "Genturix"

// TOTPEnrollment carries everything a client needs to add the account to an
// authenticator app: the raw secret for manual entry and a scannable QR code
// as a data URI.
type TOTPEnrollment struct {
	Secret      string
	AccountName string
	QRDataURI   string
}

// NewTOTPEnrollment mints a fresh TOTP secret for the account and renders
// its provisioning QR code. The secret is not persisted here; it only
// becomes active once the user proves possession via Enable.
func NewTOTPEnrollment(username string) (TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: username,
	})
	if err != nil {
		return TOTPEnrollment{}, err
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return TOTPEnrollment{}, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return TOTPEnrollment{}, err
	}

	return TOTPEnrollment{
		Secret:      key.Secret(),
		AccountName: username,
		QRDataURI:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// VerifyTOTPCode checks a code against a secret at the current time.
func VerifyTOTPCode(secret, code string) bool {
	return totp.Validate(code, secret)
}
