package imap

import "fmt"

type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("imap connection to %s failed: %s", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("imap login as %s failed: %s", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
