package users

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	PATCH(path string, body any) error
	DELETE(path string) error
	GetResponseField(path string) (any, error)
}

// RegisterSteps registers user list and mutation steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &usersSteps{tc: tc}

	ctx.Step(`^I list users searching for "([^"]*)"$`, steps.listSearching)
	ctx.Step(`^I list users with status "([^"]*)" sorted by "([^"]*)" "([^"]*)"$`, steps.listSorted)
	ctx.Step(`^I change the status of "([^"]*)" to "([^"]*)"$`, steps.changeStatus)
	ctx.Step(`^I replace the roles of "([^"]*)" with "([^"]*)"$`, steps.replaceRoles)
	ctx.Step(`^I delete user "([^"]*)"$`, steps.deleteUser)
	ctx.Step(`^the listed usernames should be "([^"]*)"$`, steps.usernamesShouldBe)
}

type usersSteps struct {
	tc TestContext
}

func (s *usersSteps) listSearching(ctx context.Context, search string) error {
	return s.tc.GET("/console/users?" + url.Values{"search": {search}}.Encode())
}

func (s *usersSteps) listSorted(ctx context.Context, status, field, order string) error {
	q := url.Values{"orderBy": {field}, "order": {order}}
	if status != "" {
		q.Set("status", status)
	}
	return s.tc.GET("/console/users?" + q.Encode())
}

func (s *usersSteps) changeStatus(ctx context.Context, username, status string) error {
	return s.tc.PATCH("/console/users/"+username+"/status", map[string]string{"status": status})
}

func (s *usersSteps) replaceRoles(ctx context.Context, username, roles string) error {
	return s.tc.PATCH("/console/users/"+username+"/roles", map[string]any{"roles": splitList(roles)})
}

func (s *usersSteps) deleteUser(ctx context.Context, username string) error {
	return s.tc.DELETE("/console/users/" + username)
}

func (s *usersSteps) usernamesShouldBe(ctx context.Context, want string) error {
	v, err := s.tc.GetResponseField("users")
	if err != nil {
		return err
	}
	list, ok := v.([]any)
	if !ok {
		return fmt.Errorf("users is not a list: %v", v)
	}
	got := make([]string, 0, len(list))
	for _, item := range list {
		u, _ := item.(map[string]any)
		got = append(got, fmt.Sprint(u["username"]))
	}
	if fmt.Sprint(got) != fmt.Sprint(splitList(want)) {
		return fmt.Errorf("expected usernames %v, got %v", splitList(want), got)
	}
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
