// Package testutil provides shared test utilities and fixtures.
package testutil

import (
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AngleGap is the absolute angular distance between a and b in radians,
// taking the short way round the circle.
func AngleGap(a, b float64) float64 {
	return math.Abs(math.Remainder(a-b, 2*math.Pi))
}

// AssertAngleNear checks that got is within tol radians of want modulo 2*pi.
func AssertAngleNear(t *testing.T, want, got, tol float64) {
	t.Helper()
	if gap := AngleGap(want, got); !(gap <= tol) {
		t.Errorf("angle = %.6f, want %.6f (gap %.6f > %.6f)", got, want, gap, tol)
	}
}

// NewLocalRequest creates a request that appears to come from loopback, so
// tsweb debug handlers accept it.
func NewLocalRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.RemoteAddr = "127.0.0.1:12345"
	req.Host = "localhost"
	return req
}
