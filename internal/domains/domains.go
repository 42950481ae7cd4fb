package domains

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultPersonal lists consumer mailbox providers. Senders on these domains
// are treated as individuals rather than organisations.
var DefaultPersonal = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"yahoo.co.uk",
	"ymail.com",
	"outlook.com",
	"hotmail.com",
	"hotmail.co.uk",
	"live.com",
	"msn.com",
	"icloud.com",
	"me.com",
	"mac.com",
	"aol.com",
	"proton.me",
	"protonmail.com",
	"gmx.com",
	"gmx.de",
	"gmx.net",
	"web.de",
	"mail.com",
	"mail.ru",
	"yandex.ru",
	"yandex.com",
	"zoho.com",
	"fastmail.com",
	"tutanota.com",
	"qq.com",
	"163.com",
}

// Checker reports whether an address belongs to one of a set of domains
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new domain checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	// Normalize domains (lowercase)
	normalized := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		domain = strings.TrimPrefix(domain, "@")
		if domain != "" {
			normalized[domain] = struct{}{}
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Debug("Initialized domain checker", zap.Int("domains", len(normalized)))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// Domain extracts the lower-cased domain part of an address
func Domain(address string) string {
	address = strings.TrimSpace(address)
	if i := strings.LastIndex(address, "<"); i >= 0 {
		address = strings.TrimSuffix(address[i+1:], ">")
	}
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[at+1:]))
}

// Contains checks if the address's domain, or a parent of it, is in the set
func (c *Checker) Contains(address string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := Domain(address)
	for domain != "" {
		if _, ok := c.domains[domain]; ok {
			if c.logger != nil {
				c.logger.Debug("Domain matched",
					zap.String("domain", domain),
					zap.String("email", address))
			}
			return true
		}
		dot := strings.Index(domain, ".")
		if dot < 0 {
			break
		}
		domain = domain[dot+1:]
	}

	return false
}
