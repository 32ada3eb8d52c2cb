package testutil

import "testing"

// Given, When and Then nest subtests so a failure reads as a scenario, for
// example "Given an open form/When the username is taken/Then submit is blocked".
func Given(t *testing.T, context string, fn func(t *testing.T)) {
	t.Helper()
	scenario(t, "Given", context, fn)
}

func When(t *testing.T, action string, fn func(t *testing.T)) {
	t.Helper()
	scenario(t, "When", action, fn)
}

func Then(t *testing.T, outcome string, fn func(t *testing.T)) {
	t.Helper()
	scenario(t, "Then", outcome, fn)
}

func scenario(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(keyword+" "+desc, fn)
}
