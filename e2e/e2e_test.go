package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the feature files against a console started with
// cmd/fakeapi behind it. Set CONSOLE_E2E_BASE_URL to enable.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("CONSOLE_E2E_BASE_URL")
	if baseURL == "" {
		t.Skip("CONSOLE_E2E_BASE_URL not set")
	}
	tc := NewTestContext(baseURL, os.Getenv("CONSOLE_E2E_ADMIN_TOKEN"), os.Getenv("CONSOLE_E2E_BEARER"))

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}
