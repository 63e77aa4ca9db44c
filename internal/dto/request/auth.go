package request

type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required,len=10,numeric"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,len=10,numeric"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// ClientMeta is what the transport knows about the caller.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}
