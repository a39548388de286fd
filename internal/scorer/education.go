package scorer

import (
	"github.com/sells-group/risk-analyzer/internal/heuristics"
	"github.com/sells-group/risk-analyzer/internal/model"
)

var education = map[string]model.EducationItem{
	heuristics.IPAddress: {
		Title:   "Why IP addresses in URLs are suspicious",
		Content: "Legitimate websites use domain names (like google.com) not raw IP addresses. If you see numbers like 192.168.1.1 in a URL, it is likely trying to bypass domain-based security filters.",
	},
	heuristics.SuspiciousTLD: {
		Title:   "Understanding domain extensions",
		Content: "Domain extensions like .xyz, .tk, or .ml are inexpensive and commonly used for temporary phishing sites. Trusted sites typically use .com, .org, .gov, or country-specific domains.",
	},
	heuristics.BrandImpersonation: {
		Title:   "How to spot fake brand domains",
		Content: "Phishers create domains that look like real brands (e.g., 'paypa1.com' instead of 'paypal.com'). Always check the domain spelling carefully before entering any information.",
	},
	heuristics.MissingHTTPS: {
		Title:   "Why HTTPS matters",
		Content: "HTTPS encrypts your connection. If a site asks for login or payment info without HTTPS (no lock icon), your data could be intercepted. Never enter sensitive information on HTTP sites.",
	},
	heuristics.UrgencyLanguage: {
		Title:   "Recognizing pressure tactics",
		Content: "Phishing messages create panic with phrases like 'Act now!' or 'Your account will be suspended.' Legitimate companies give you time to respond and never threaten immediate consequences via email.",
	},
	heuristics.SensitiveRequest: {
		Title:   "When to share personal information",
		Content: "Banks and legitimate services never ask for passwords, credit card numbers, or SSNs via email. If a message asks for this, it is almost certainly a scam.",
	},
	heuristics.Shortener: {
		Title:   "Hidden destinations behind short links",
		Content: "URL shorteners (bit.ly, tinyurl) hide the real destination. Before clicking, use a URL expander tool to see where the link actually goes.",
	},
	heuristics.ExcessiveLength: {
		Title:   "Why long URLs can be suspicious",
		Content: "Extremely long URLs often contain hidden parameters or encoded redirects designed to confuse you and bypass security tools.",
	},
	heuristics.GenericGreeting: {
		Title:   "Impersonal messages are a red flag",
		Content: "Emails that start with 'Dear Customer' instead of your name are often mass-sent phishing attempts. Your bank and other services know your name.",
	},
	heuristics.AtSymbol: {
		Title:   "The @ symbol trick in URLs",
		Content: "An '@' in a URL tells the browser to ignore everything before it and go to what follows. So 'http://google.com@evil.com' actually takes you to evil.com.",
	},
}

var (
	safeTip = model.EducationItem{
		Title:   "Good practice: Always verify before trusting",
		Content: "Even though this appears safe, always verify the sender and URL before entering personal information. Bookmark important sites and access them directly.",
	}
	warningTip = model.EducationItem{
		Title:   "What to do with suspicious content",
		Content: "Do not click any links or download attachments. If this claims to be from a company you use, go directly to their website by typing the address yourself. Report the suspicious content to the claimed organization.",
	}
)

// Education returns the explanatory content for each uniquely named
// detected indicator, followed by exactly one closing tip chosen by label.
// Names without an entry are skipped.
func Education(indicators []model.Indicator, label model.Label) []model.EducationItem {
	out := make([]model.EducationItem, 0, len(indicators)+1)
	seen := make(map[string]bool, len(indicators))
	for _, ind := range indicators {
		if !ind.Detected || seen[ind.Name] {
			continue
		}
		seen[ind.Name] = true
		if item, ok := education[ind.Name]; ok {
			out = append(out, item)
		}
	}

	if label == model.LabelSafe {
		out = append(out, safeTip)
	} else {
		out = append(out, warningTip)
	}
	return out
}
