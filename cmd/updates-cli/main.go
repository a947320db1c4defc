package main

import (
	"os"

	"github.com/imgapi/imgapi-cli/internal/cli"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	os.Exit(cli.Main(cli.Profile{
		Name:        "updates-cli",
		Description: "Manage images in the update-channel registry",
		URL:         "https://updates.example.com",
		Auth:        cli.AuthSignature,
		Channels:    true,
		Admin:       true,
		Env: []cli.EnvFallback{
			{Var: "UPDATES_URL", Flag: "url"},
			{Var: "UPDATES_USER", Flag: "user"},
			{Var: "UPDATES_IDENTITY", Flag: "identity"},
			{Var: "UPDATES_CHANNEL", Flag: "channel"},
		},
		Version:    version,
		UpdateRepo: "imgapi/imgapi-cli",
	}))
}
