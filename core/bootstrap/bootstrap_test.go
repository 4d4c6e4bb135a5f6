package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/menubot/core/config"
	coredatabase "github.com/m3rciful/menubot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	connected := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, errors.New("unexpected")
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if connected || res.DB != nil {
		t.Fatal("database must not be touched when disabled")
	}
}

func TestRunNilConfig(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunLoggerFailure(t *testing.T) {
	want := errors.New("no sink")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return want },
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

func TestRunConnectFailure(t *testing.T) {
	want := errors.New("refused")
	_, err := Run(context.Background(), Options{
		Config:      &coreconfig.Config{},
		UseDatabase: true,
		LoggerInit:  noLogger,
		Connect:     func(context.Context, coredatabase.Config) (*sqlx.DB, error) { return nil, want },
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

func TestSeederFunc(t *testing.T) {
	called := false
	var s Seeder = SeederFunc(func(context.Context, *sqlx.DB) error {
		called = true
		return nil
	})
	if err := s.Seed(context.Background(), nil); err != nil || !called {
		t.Fatalf("seed: called=%v err=%v", called, err)
	}
}
