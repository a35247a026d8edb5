package storage

import (
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// DeveloperDomain returns the registrable domain of a developer website.
// e.g., "https://games.studio.example.co.uk/about" -> "example.co.uk", true
func DeveloperDomain(website string) (string, bool) {
	website = strings.TrimSpace(website)
	if website == "" {
		return "", false
	}

	// Without a scheme url.Parse puts the host in the path.
	if !strings.Contains(website, "://") {
		website = "http://" + website
	}

	u, err := url.Parse(website)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if !strings.Contains(host, ".") {
		return "", false
	}

	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return "", false
	}
	return domain, true
}
