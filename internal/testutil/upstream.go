package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Upstream is a fake of the three source APIs. Each endpoint answers with the
// configured JSON body, or with the configured status code when it is not 200.
type Upstream struct {
	Server *httptest.Server

	mu     sync.Mutex
	bodies map[string]any
	status map[string]int
	hits   map[string]int

	// failFirst makes the first N hits of a path fail with the given code.
	failFirst map[string]failure
}

type failure struct {
	code int
	n    int
}

// Endpoint paths served by Upstream.
const (
	UsersPath      = "/users"
	AddressPath    = "/api/address/random_address"
	CreditCardPath = "/api/business_credit_card/random_card"
)

// NewUpstream starts a fake upstream closed via t.Cleanup.
func NewUpstream(t *testing.T) *Upstream {
	t.Helper()
	u := &Upstream{
		bodies: map[string]any{},
		status: map[string]int{},
		hits:   map[string]int{},

		failFirst: map[string]failure{},
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)
	return u
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	code, hasCode := u.status[r.URL.Path]
	if f, ok := u.failFirst[r.URL.Path]; ok && u.hits[r.URL.Path] <= f.n {
		code, hasCode = f.code, true
	}
	body, hasBody := u.bodies[r.URL.Path]
	u.mu.Unlock()

	if hasCode && code != http.StatusOK {
		http.Error(w, http.StatusText(code), code)
		return
	}
	if !hasBody {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if raw, ok := body.(string); ok {
		_, _ = w.Write([]byte(raw))
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// Respond sets the JSON body for path. A string body is written verbatim.
func (u *Upstream) Respond(path string, body any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bodies[path] = body
	delete(u.status, path)
}

// Fail makes path answer with the given HTTP status code.
func (u *Upstream) Fail(path string, code int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status[path] = code
}

// FailFirst makes the next n requests to path answer with code; later ones
// get the configured body.
func (u *Upstream) FailFirst(path string, code, n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failFirst[path] = failure{code: code, n: u.hits[path] + n}
}

// Hits returns how many requests path has received.
func (u *Upstream) Hits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func (u *Upstream) UsersURL() string      { return u.Server.URL + UsersPath }
func (u *Upstream) AddressURL() string    { return u.Server.URL + AddressPath }
func (u *Upstream) CreditCardURL() string { return u.Server.URL + CreditCardPath }

// SampleUser mirrors one record of the users source.
func SampleUser(id int, name, username, email string) map[string]any {
	return map[string]any{
		"id":       id,
		"name":     name,
		"username": username,
		"email":    email,
		"phone":    "1-770-736-8031 x56442",
		"website":  "hildegard.org",
		"company": map[string]any{
			"name":        "Romaguera-Crona",
			"catchPhrase": "Multi-layered client-server neural-net",
			"bs":          "harness real-time e-markets",
		},
	}
}

// SampleAddress mirrors one response of the address source.
func SampleAddress() map[string]any {
	return map[string]any{
		"street_number": "123",
		"street_name":   "Main Street",
		"city":          "New York",
		"state":         "NY",
		"country":       "United States",
		"postal_code":   "10001",
	}
}

// SampleCreditCard mirrors one response of the credit card source.
func SampleCreditCard() map[string]any {
	return map[string]any{
		"credit_card_number":      "4532-1234-5678-9012",
		"credit_card_type":        "visa",
		"credit_card_expiry_date": "12/25",
	}
}
