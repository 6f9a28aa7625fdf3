// Package provider maps an email address to the IMAP endpoint of its host.
package provider

import (
	"fmt"
	"strings"
)

type Endpoint struct {
	Name string
	Addr string
	TLS  bool
}

// UnsupportedProviderError is returned for addresses whose domain is not in the table.
type UnsupportedProviderError struct {
	Domain string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported email provider for domain %q", e.Domain)
}

var (
	Gmail   = Endpoint{Name: "gmail", Addr: "imap.gmail.com:993", TLS: true}
	Outlook = Endpoint{Name: "outlook", Addr: "imap-mail.outlook.com:993", TLS: true}
)

var table = []struct {
	domain   string
	endpoint Endpoint
}{
	{domain: "gmail.com", endpoint: Gmail},
	{domain: "outlook.com", endpoint: Outlook},
	{domain: "hotmail.com", endpoint: Outlook},
}

func ForAddress(address string) (Endpoint, error) {
	domain := address
	if at := strings.LastIndex(address, "@"); at >= 0 {
		domain = address[at+1:]
	}
	domain = strings.ToLower(domain)

	for _, entry := range table {
		if strings.Contains(domain, entry.domain) {
			return entry.endpoint, nil
		}
	}

	return Endpoint{}, &UnsupportedProviderError{Domain: domain}
}
