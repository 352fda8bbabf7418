package domain

const (
	MailTypeWelcome         = "welcome"
	MailTypeResetPassword   = "reset_password"
	MailTypePasswordChanged = "password_changed"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type WelcomeMailData struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type ResetPasswordMailData struct {
	Name       string `json:"name"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type PasswordChangedMailData struct {
	Name string `json:"name"`
}
