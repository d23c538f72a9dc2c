package classify

// userMessages is the fixed per-type user copy. One sentence per type,
// independent of severity and of the failure's raw text.
var userMessages = map[Type]string{
	TypeNetwork:         "Connection problem. Please check your network and try again.",
	TypeValidation:      "Some of the entered data is not valid. Please review and correct it.",
	TypeAuthentication:  "Your session has expired. Please sign in again.",
	TypeAuthorization:   "You do not have permission to perform this action.",
	TypeDataConsistency: "The record was changed by someone else. Please review the latest version.",
	TypeNotFound:        "The requested record could not be found.",
	TypeServer:          "The server encountered a problem. Please try again later.",
	TypeUnknown:         "Something went wrong. Please try again.",
}

// Message returns the stable user-facing sentence for a failure.
// Raw failure text is never included.
func Message(err error) string {
	return userMessages[Classify(err).Type]
}
