package heuristics

// Indicator names. They key the scoring categories and the education table.
const (
	ExcessiveLength     = "Excessive URL Length"
	IPAddress           = "IP Address Instead of Domain"
	MissingHTTPS        = "Missing HTTPS"
	SuspiciousTLD       = "Suspicious Top-Level Domain"
	Shortener           = "URL Shortener Detected"
	ExcessiveSubdomains = "Excessive Subdomains"
	AtSymbol            = "@ Symbol in URL"
	BrandImpersonation  = "Brand Impersonation"
	SuspiciousPath      = "Suspicious Path Keywords"
	Obfuscation         = "URL Encoding / Obfuscation"

	UrgencyLanguage  = "Urgency Language Detected"
	MultipleURLs     = "Multiple URLs in Message"
	LinkContext      = "Suspicious Link Context"
	SensitiveRequest = "Request for Sensitive Information"
	GenericGreeting  = "Generic Greeting"
	ThreateningWords = "Threatening Language"
)

var suspiciousTLDs = map[string]bool{
	".xyz": true, ".tk": true, ".ml": true, ".ga": true, ".cf": true, ".gq": true,
	".top": true, ".buzz": true, ".club": true, ".work": true, ".info": true,
	".click": true, ".link": true, ".support": true, ".review": true,
	".country": true, ".stream": true, ".download": true, ".racing": true,
	".win": true, ".bid": true, ".accountant": true, ".science": true, ".party": true,
}

// ShortenerDomains lists hosts of known URL shortening services.
var ShortenerDomains = map[string]bool{
	"bit.ly": true, "tinyurl.com": true, "t.co": true, "goo.gl": true,
	"ow.ly": true, "is.gd": true, "buff.ly": true, "rebrand.ly": true,
	"cutt.ly": true, "short.io": true, "tiny.cc": true,
}

type brandTarget struct {
	brand    string
	variants []string
}

// Ordered: the first brand with a matching variant wins.
var brandTargets = []brandTarget{
	{"paypal", []string{"paypa1", "paypol", "paypaI", "pay-pal", "paypall", "paypal-secure"}},
	{"google", []string{"go0gle", "googl3", "g00gle", "goog1e", "google-verify"}},
	{"apple", []string{"app1e", "appie", "apple-id", "appl3"}},
	{"microsoft", []string{"micros0ft", "mlcrosoft", "microsft", "microsoft-verify"}},
	{"amazon", []string{"amaz0n", "arnazon", "amazon-secure"}},
	{"netflix", []string{"netf1ix", "netfllx", "netflix-account"}},
	{"facebook", []string{"faceb00k", "facebok", "facebook-login"}},
	{"instagram", []string{"1nstagram", "lnstagram", "instagram-verify"}},
	{"linkedin", []string{"l1nkedin", "linkedln", "linkedin-verify"}},
	{"chase", []string{"chas3", "chase-secure", "chase-verify"}},
	{"wellsfargo", []string{"we11sfargo", "wellsfarg0", "wells-fargo-secure"}},
	{"bankofamerica", []string{"bankofamer1ca", "bank0famerica"}},
}

var pathKeywords = []string{"login", "signin", "verify", "secure", "account", "banking", "update", "confirm"}

var urgencyPhrases = []string{
	"verify now", "act immediately", "suspended", "unauthorized",
	"confirm your", "update your", "expire", "urgent", "immediately",
	"click here", "limited time", "account locked", "security alert",
	"verify your identity", "unusual activity", "confirm identity",
	"reset your password", "action required", "final warning",
	"your account will be", "failure to", "within 24 hours",
	"within 48 hours", "deactivated", "restricted",
}

var sensitivePhrases = []string{
	"password", "credit card", "social security", "ssn", "bank account",
	"routing number", "pin number", "date of birth", "mother's maiden",
}

var genericGreetings = []string{"dear customer", "dear user", "dear sir", "dear account holder", "dear valued"}

var threatPhrases = []string{"will be terminated", "will be closed", "will be suspended", "legal action", "law enforcement"}
