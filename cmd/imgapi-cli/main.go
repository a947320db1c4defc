package main

import (
	"os"

	"github.com/imgapi/imgapi-cli/internal/cli"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	os.Exit(cli.Main(cli.Profile{
		Name:        "imgapi-cli",
		Description: "Manage images in a private datacenter image registry",
		Auth:        cli.AuthNone,
		Channels:    true,
		Admin:       true,
		Env: []cli.EnvFallback{
			{Var: "IMGAPI_CLI_URL", Flag: "url"},
			{Var: "IMGAPI_CLI_CHANNEL", Flag: "channel"},
			{Var: "IMGAPI_CLI_INSECURE", Flag: "insecure"},
		},
		Version:    version,
		UpdateRepo: "imgapi/imgapi-cli",
	}))
}
