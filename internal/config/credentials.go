package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Credentials maps a recognized email address to its mailbox password.
// It is immutable once parsed.
type Credentials struct {
	passwords map[string]string
}

func ParseCredentials(raw string) (Credentials, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Credentials{}, &Error{Key: keyEmailCredentials, Reason: "must be set"}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	var passwords map[string]string
	if err := dec.Decode(&passwords); err != nil {
		return Credentials{}, &Error{Key: keyEmailCredentials, Reason: fmt.Sprintf("must be a JSON object of strings: %s", err)}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Credentials{}, &Error{Key: keyEmailCredentials, Reason: "has trailing data after the JSON object"}
	}

	if len(passwords) == 0 {
		return Credentials{}, &Error{Key: keyEmailCredentials, Reason: "must contain at least one address"}
	}

	for address, password := range passwords {
		if strings.TrimSpace(address) == "" || address != strings.TrimSpace(address) {
			return Credentials{}, &Error{Key: keyEmailCredentials, Reason: fmt.Sprintf("address %q is blank or padded with whitespace", address)}
		}
		if password == "" {
			return Credentials{}, &Error{Key: keyEmailCredentials, Reason: fmt.Sprintf("password for %s is empty", address)}
		}
	}

	return Credentials{passwords: passwords}, nil
}

func NewCredentials(passwords map[string]string) Credentials {
	copied := make(map[string]string, len(passwords))
	for k, v := range passwords {
		copied[k] = v
	}
	return Credentials{passwords: copied}
}

// Lookup matches the address exactly, without case folding.
func (c Credentials) Lookup(address string) (string, bool) {
	password, ok := c.passwords[address]
	return password, ok
}

func (c Credentials) Len() int {
	return len(c.passwords)
}

func (c Credentials) Addresses() []string {
	addresses := make([]string, 0, len(c.passwords))
	for address := range c.passwords {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}
