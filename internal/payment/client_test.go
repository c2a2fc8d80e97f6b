package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		PassKey:        "passkey",
		Environment:    "sandbox",
		CallbackURL:    "https://example.com/api/payments/callback",
	}
}

func TestAccessToken_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/v1/generate" {
			t.Fatalf("path = %s, want /oauth/v1/generate", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			t.Fatalf("basic auth = %q/%q/%v", user, pass, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	c.testBaseURL = ts.URL

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	token, err := c.AccessToken(ctx)
	if err != nil {
		t.Fatalf("AccessToken error: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("token = %q, want tok-1", token)
	}
}

func TestAccessToken_Cached(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	c.testBaseURL = ts.URL

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.AccessToken(ctx); err != nil {
			t.Fatalf("AccessToken error: %v", err)
		}
	}

	if calls != 1 {
		t.Fatalf("token endpoint called %d times, want 1", calls)
	}
}

func TestAccessToken_CredentialsMissing(t *testing.T) {
	c := NewClient(Config{})

	_, err := c.AccessToken(context.Background())
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("error = %v, want ErrCredentialsMissing", err)
	}
}

func TestAccessToken_UpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessage":"invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	c.testBaseURL = ts.URL

	_, err := c.AccessToken(context.Background())
	if !errors.Is(err, ErrUpstreamAuth) {
		t.Fatalf("error = %v, want ErrUpstreamAuth", err)
	}
	if !strings.Contains(err.Error(), "invalid credentials") {
		t.Fatalf("error %q does not carry upstream detail", err)
	}
}

func TestInitiateSTKPush_OK(t *testing.T) {
	fixedNow := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

	var gotPush stkPushRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
		case "/mpesa/stkpush/v1/processrequest":
			if auth := r.Header.Get("Authorization"); auth != "Bearer tok-1" {
				t.Fatalf("authorization = %q, want Bearer tok-1", auth)
			}
			if err := json.NewDecoder(r.Body).Decode(&gotPush); err != nil {
				t.Fatalf("decode push request: %v", err)
			}
			_, _ = w.Write([]byte(`{
				"MerchantRequestID":"mr-1",
				"CheckoutRequestID":"ws_CO_1",
				"ResponseCode":"0",
				"ResponseDescription":"Success. Request accepted for processing",
				"CustomerMessage":"Success. Request accepted for processing"
			}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	c.testBaseURL = ts.URL
	c.now = func() time.Time { return fixedNow }

	res, err := c.InitiateSTKPush(context.Background(), "0712345678", 4800, "DUKA-20250314-0001", "Duka order")
	if err != nil {
		t.Fatalf("InitiateSTKPush error: %v", err)
	}

	if res.CheckoutRequestID != "ws_CO_1" {
		t.Fatalf("checkout request id = %q, want ws_CO_1", res.CheckoutRequestID)
	}
	if res.CustomerMessage == "" {
		t.Fatalf("customer message is empty")
	}

	if gotPush.PhoneNumber != "254712345678" || gotPush.PartyA != "254712345678" {
		t.Fatalf("phone not normalized: %+v", gotPush)
	}
	if gotPush.Amount != "4800" {
		t.Fatalf("amount = %q, want 4800", gotPush.Amount)
	}
	if len(gotPush.AccountReference) > referenceMaxLen {
		t.Fatalf("reference %q exceeds %d characters", gotPush.AccountReference, referenceMaxLen)
	}

	wantTimestamp := "20250314150926"
	if gotPush.Timestamp != wantTimestamp {
		t.Fatalf("timestamp = %q, want %q", gotPush.Timestamp, wantTimestamp)
	}
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + wantTimestamp))
	if gotPush.Password != wantPassword {
		t.Fatalf("password = %q, want %q", gotPush.Password, wantPassword)
	}
}

func TestInitiateSTKPush_ValidationBeforeNetwork(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no network call expected, got %s %s", r.Method, r.URL.Path)
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	c.testBaseURL = ts.URL

	if _, err := c.InitiateSTKPush(context.Background(), "not-a-phone", 100, "ref", "desc"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad phone: error = %v, want ErrValidation", err)
	}
	if _, err := c.InitiateSTKPush(context.Background(), "0712345678", 0, "ref", "desc"); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero amount: error = %v, want ErrValidation", err)
	}
	if _, err := c.InitiateSTKPush(context.Background(), "0712345678", -50, "ref", "desc"); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative amount: error = %v, want ErrValidation", err)
	}
}

func TestInitiateSTKPush_UpstreamRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
			return
		}
		http.Error(w, `{"errorCode":"500.001.1001","errorMessage":"Unable to lock subscriber"}`, http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(testConfig())
	c.testBaseURL = ts.URL

	_, err := c.InitiateSTKPush(context.Background(), "0712345678", 4800, "ref", "desc")
	if !errors.Is(err, ErrUpstreamRejected) {
		t.Fatalf("error = %v, want ErrUpstreamRejected", err)
	}
	if !strings.Contains(err.Error(), "Unable to lock subscriber") {
		t.Fatalf("error %q does not carry provider payload", err)
	}
}

func TestSanitizeReference(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: "Order"},
		{input: "SHORT", want: "SHORT"},
		{input: "EXACTLYTWELV", want: "EXACTLYTWELV"},
		{input: "DUKA-20250314-0001", want: "DUKA-2025031"},
	}

	for _, tt := range tests {
		if got := sanitizeReference(tt.input); got != tt.want {
			t.Fatalf("sanitizeReference(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
