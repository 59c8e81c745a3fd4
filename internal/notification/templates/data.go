package templates

// PasswordResetData holds variables for the account.password_reset template.
type PasswordResetData struct {
	Email     string
	ResetURL  string
	ExpiresIn string
}

// PasswordReset is the typed handle for the account.password_reset template.
var PasswordReset = Expect[PasswordResetData]("account.password_reset")

// VerifyEmailData holds variables for the account.verify_email template.
type VerifyEmailData struct {
	Email     string
	VerifyURL string
	ExpiresIn string
}

// VerifyEmail is the typed handle for the account.verify_email template.
var VerifyEmail = Expect[VerifyEmailData]("account.verify_email")
