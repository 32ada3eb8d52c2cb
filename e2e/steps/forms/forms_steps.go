package forms

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	PATCH(path string, body any) error
	DELETE(path string) error
	GetResponseField(path string) (any, error)
	GetFormID() string
	SetFormID(id string)
}

// RegisterSteps registers creation form steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &formSteps{tc: tc}

	ctx.Step(`^I open a user creation form$`, steps.openForm)
	ctx.Step(`^I set "([^"]*)" to "([^"]*)"$`, steps.setField)
	ctx.Step(`^I fill the form with:$`, steps.fillForm)
	ctx.Step(`^I submit the form$`, steps.submit)
	ctx.Step(`^I discard the form$`, steps.discard)
	ctx.Step(`^I reload the form$`, steps.reload)
}

type formSteps struct {
	tc TestContext
}

func (s *formSteps) openForm(ctx context.Context) error {
	if err := s.tc.POST("/console/forms/users", nil); err != nil {
		return err
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetFormID(fmt.Sprint(id))
	return nil
}

func (s *formSteps) path() string {
	return "/console/forms/users/" + s.tc.GetFormID()
}

func (s *formSteps) setField(ctx context.Context, field, value string) error {
	return s.tc.PATCH(s.path(), map[string]string{"field": field, "value": value})
}

func (s *formSteps) fillForm(ctx context.Context, table *godog.Table) error {
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected field | value rows")
		}
		if err := s.setField(ctx, row.Cells[0].Value, row.Cells[1].Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *formSteps) submit(ctx context.Context) error {
	return s.tc.POST(s.path()+"/submit", nil)
}

func (s *formSteps) discard(ctx context.Context) error {
	return s.tc.DELETE(s.path())
}

func (s *formSteps) reload(ctx context.Context) error {
	return s.tc.GET(s.path())
}
