package e2e

import (
	"github.com/cucumber/godog"

	"console/e2e/steps/common"
	"console/e2e/steps/forms"
	"console/e2e/steps/users"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// generic requests and response assertions
	common.RegisterSteps(ctx, tc)

	users.RegisterSteps(ctx, tc)
	forms.RegisterSteps(ctx, tc)
}
