package main

import (
	"os"

	"github.com/imgapi/imgapi-cli/internal/cli"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	os.Exit(cli.Main(cli.Profile{
		Name:        "images-cli",
		Description: "Manage images in the public image catalog",
		URL:         "https://images.example.com",
		Auth:        cli.AuthSignature,
		Env: []cli.EnvFallback{
			{Var: "IMAGES_URL", Flag: "url"},
			{Var: "IMAGES_USER", Flag: "user"},
			{Var: "IMAGES_IDENTITY", Flag: "identity"},
		},
		Version:    version,
		UpdateRepo: "imgapi/imgapi-cli",
	}))
}
