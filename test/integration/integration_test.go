package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

var (
	apiGatewayURL = getEnv("API_GATEWAY_URL", "http://localhost:8080")
	redirectURL   = getEnv("REDIRECT_SERVICE_URL", "http://localhost:8081")
	runID         = time.Now().UnixNano()
)

// noFollow stops at the first response so redirects can be inspected.
var noFollow = &http.Client{
	Timeout: 10 * time.Second,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

type created struct {
	Kind      string `json:"kind"`
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
	QRCode    string `json:"qr_code"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		fmt.Println("Skipping integration tests. Set INTEGRATION_TEST=true to run.")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func post(t *testing.T, path string, payload interface{}) (*http.Response, []byte) {
	t.Helper()
	body, _ := json.Marshal(payload)

	resp, err := http.Post(apiGatewayURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func create(t *testing.T, path string, payload interface{}) created {
	t.Helper()
	resp, data := post(t, path, payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST %s: expected 201, got %d: %s", path, resp.StatusCode, data)
	}

	var c created
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return c
}

func get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := noFollow.Get(redirectURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp, string(data)
}

func TestHealthCheck(t *testing.T) {
	for _, base := range []string{apiGatewayURL, redirectURL} {
		resp, err := http.Get(base + "/health")
		if err != nil {
			t.Fatalf("health check failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", base, resp.StatusCode)
		}
	}
}

func TestShortenAndRedirect(t *testing.T) {
	c := create(t, "/api/urls", map[string]string{
		"url":        "https://example.com/integration",
		"expiration": "1h",
	})

	if c.Kind != "redirect" || c.ShortCode == "" {
		t.Fatalf("unexpected response: %+v", c)
	}
	if !strings.HasPrefix(c.QRCode, "data:image/png;base64,") {
		t.Error("expected QR data URI")
	}

	resp, _ := get(t, "/"+strings.ToUpper(c.ShortCode))
	if resp.StatusCode != http.StatusFound && resp.StatusCode != http.StatusOK {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusFound && resp.Header.Get("Location") != "https://example.com/integration" {
		t.Errorf("unexpected Location %s", resp.Header.Get("Location"))
	}
}

func TestCustomCodeConflict(t *testing.T) {
	code := fmt.Sprintf("it-%d", runID)
	payload := map[string]string{
		"url":               "https://example.com/custom",
		"custom_short_code": code,
		"expiration":        "1d",
	}

	create(t, "/api/urls", payload)

	payload["custom_short_code"] = strings.ToUpper(code)
	resp, data := post(t, "/api/urls", payload)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate in other case, got %d: %s", resp.StatusCode, data)
	}
}

func TestLinkList(t *testing.T) {
	c := create(t, "/api/lists", map[string]interface{}{
		"items": []map[string]string{
			{"url": "https://one.example", "title": "One"},
			{"url": "https://two.example", "title": "Two"},
		},
		"expiration": "1w",
	})

	resp, body := get(t, "/list/"+c.ShortCode)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if strings.Index(body, "One") > strings.Index(body, "Two") {
		t.Error("expected items in creation order")
	}
}

func TestClipboard(t *testing.T) {
	c := create(t, "/api/clips", map[string]string{
		"content":    "integration <clip>",
		"expiration": "lifetime",
	})

	resp, body := get(t, "/clip/"+c.ShortCode)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "integration &lt;clip&gt;") {
		t.Error("expected escaped clip content")
	}
}

func TestValidationAndNotFound(t *testing.T) {
	resp, _ := post(t, "/api/urls", map[string]string{"url": "ftp://example.com", "expiration": "1h"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for ftp URL, got %d", resp.StatusCode)
	}

	resp, _ = post(t, "/api/clips", map[string]string{"content": "x", "expiration": "2d"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown expiration, got %d", resp.StatusCode)
	}

	resp, body := get(t, fmt.Sprintf("/clip/missing-%d", runID))
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(body, "Clipboard entry not found or expired.") {
		t.Errorf("expected clip not-found page, got %d", resp.StatusCode)
	}
}
