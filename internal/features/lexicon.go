package features

// Reference lists consulted by the scanners. They are read-only after package
// initialization and shared by every extraction call.
var (
	// suspiciousKeywords is the phishing phrase lexicon
	suspiciousKeywords = [...]string{
		"urgent", "verify", "account", "suspended", "password", "click here",
		"verify your account", "confirm your account", "update account",
		"win", "prize", "free", "limited time", "act now", "expires",
		"click below", "secure your account", "unauthorized login attempt",
		"verify identity", "account verification required",
	}

	// shortenerDomains lists URL shortening services
	shortenerDomains = [...]string{
		"bit.ly", "tinyurl.com", "goo.gl", "t.co", "tiny.cc",
		"is.gd", "buff.ly", "ow.ly",
	}

	urgentWords = [...]string{"urgent", "immediately", "asap", "critical", "important"}

	attachmentKeywords = [...]string{"attachment", "attached", "download", "file attached"}

	formIndicators = [...]string{"<input", "<form", `type="password"`, `type="text"`}

	// commonDomains are public webmail providers
	commonDomains = [...]string{"gmail.com", "yahoo.com", "outlook.com", "hotmail.com"}
)
