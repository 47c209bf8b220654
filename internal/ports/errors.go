package ports

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNotFound = errors.New("not found")

// AuthError signale l'échec de l'échange client-credentials.
// Sans token, rien d'autre ne peut se faire: l'erreur est fatale.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e == nil || e.Err == nil {
		return "authentication failed"
	}
	return "authentication failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// StatusError est une réponse HTTP hors 2xx.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d %s for %s", e.Status, http.StatusText(e.Status), e.URL)
}

// Retryable indique si le statut relève d'un échec transitoire.
func (e *StatusError) Retryable() bool {
	return IsRetryableStatus(e.Status)
}

// IsRetryableStatus: 429, 500, 502, 503, 504.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// TransientAPIError est renvoyée quand un appel API échoue
// après épuisement des tentatives.
type TransientAPIError struct {
	Kind     string
	Attempts int
	Err      error
}

func (e *TransientAPIError) Error() string {
	return fmt.Sprintf("api %s failed after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *TransientAPIError) Unwrap() error { return e.Err }

// Status renvoie le code HTTP de la dernière tentative, ou 0.
func (e *TransientAPIError) Status() int {
	var se *StatusError
	if errors.As(e.Err, &se) {
		return se.Status
	}
	return 0
}
