// Command fakeapi serves the in-memory admin API double for local
// development and end-to-end runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"console/internal/adminapi/fake"
	"console/internal/platform/httpserver"
	"console/internal/platform/logger"
	"console/internal/users/models"
)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	prefix := flag.String("prefix", "/api/admin", "path prefix of the admin API")
	token := flag.String("token", "", "bearer token required on every request (empty disables)")
	seed := flag.Bool("seed", true, "seed sample users")
	flag.Parse()

	log := logger.New("info", "text")

	opts := []fake.Option{fake.WithToken(*token)}
	if *seed {
		opts = append(opts, fake.WithUsers(sampleUsers()...))
	}
	api := fake.New(opts...)

	r := chi.NewRouter()
	r.Mount(*prefix, api.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("fake admin API listening", "addr", *addr, "prefix", *prefix)
	if err := httpserver.Run(ctx, httpserver.New(*addr, r), 5*time.Second); err != nil {
		fmt.Fprintln(os.Stderr, "fakeapi:", err)
		os.Exit(1)
	}
	log.Info("fake admin API stopped")
}

func sampleUsers() []models.User {
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	return []models.User{
		{Username: "amy", Email: "amy@example.com", FirstName: "Amy", LastName: "Adams", Country: "US", Status: models.StatusActive, Roles: []string{"admin"}, CreatedAt: base},
		{Username: "bob", Email: "bob@example.com", FirstName: "Bob", LastName: "Brown", Country: "UK", Status: models.StatusBlocked, Roles: []string{"user"}, CreatedAt: base.Add(24 * time.Hour)},
		{Username: "carla", Email: "carla@example.org", FirstName: "Carla", LastName: "Cruz", Country: "ES", Status: models.StatusPending, Roles: []string{"user"}, CreatedAt: base.Add(48 * time.Hour)},
		{Username: "dmitri", Email: "dmitri@example.net", FirstName: "Dmitri", LastName: "Dorn", Status: models.StatusInactive, Roles: []string{"user", "auditor"}, CreatedAt: base.Add(72 * time.Hour)},
	}
}
