package auth

// User-facing messages for failed account flows.
const (
	MsgEmailInUse       = "This email is already registered."
	MsgWrongPassword    = "Invalid password."
	MsgUserNotFound     = "User not found."
	MsgRegisterFailed   = "Failed to register. Please try again."
	MsgLoginFailed      = "Invalid email or password."
	MsgFederatedFailed  = "Google sign-in failed. Please try again."
	MsgUnexpectedFailed = "An unexpected error occurred."
)

// RegisterMessage maps a registration failure to the message shown to the user.
func RegisterMessage(err error) string {
	code := CodeOf(err)
	switch code {
	case CodeEmailAlreadyInUse:
		return MsgEmailInUse
	case CodeWrongPassword:
		return MsgWrongPassword
	case CodeUserNotFound:
		return MsgUserNotFound
	case "":
		return MsgUnexpectedFailed
	default:
		return MsgRegisterFailed
	}
}
