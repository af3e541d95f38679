package config

import "testing"

func TestLoadAppValidate(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("DISCORD_APPLICATION_ID", "app")
	t.Setenv("DISCORD_PUBLIC_KEY", "key")
	t.Setenv("STORE_BACKEND", "postgres")

	cfg, err := LoadApp()
	if err != nil {
		t.Fatalf("LoadApp() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for postgres backend without POSTGRES_DSN")
	}

	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/archipelalog?sslmode=disable")
	cfg, err = LoadApp()
	if err != nil {
		t.Fatalf("LoadApp() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
