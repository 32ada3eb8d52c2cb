package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TestContext carries one scenario's HTTP state against a running console.
type TestContext struct {
	BaseURL    string
	AdminToken string
	Bearer     string

	client     *http.Client
	lastStatus int
	lastBody   []byte
	formID     string
}

func NewTestContext(baseURL, adminToken, bearer string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		Bearer:     bearer,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.formID = ""
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.AdminToken != "" {
		req.Header.Set("X-Admin-Token", tc.AdminToken)
	}
	if tc.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+tc.Bearer)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GET(path string) error            { return tc.do(http.MethodGet, path, nil) }
func (tc *TestContext) POST(path string, body any) error  { return tc.do(http.MethodPost, path, body) }
func (tc *TestContext) PATCH(path string, body any) error { return tc.do(http.MethodPatch, path, body) }
func (tc *TestContext) DELETE(path string) error          { return tc.do(http.MethodDelete, path, nil) }

func (tc *TestContext) GetLastStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastBody() []byte {
	return tc.lastBody
}

func (tc *TestContext) GetFormID() string {
	return tc.formID
}

func (tc *TestContext) SetFormID(id string) {
	tc.formID = id
}

// GetResponseField walks a dotted path such as "users.0.username" through the
// last JSON response.
func (tc *TestContext) GetResponseField(path string) (any, error) {
	var cur any
	if err := json.Unmarshal(tc.lastBody, &cur); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in response", path)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q", path)
		}
	}
	return cur, nil
}
