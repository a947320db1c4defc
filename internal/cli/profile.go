package cli

// AuthMode selects how a deployment authenticates requests.
type AuthMode int

const (
	// AuthNone trusts the network, the private per-datacenter setup.
	AuthNone AuthMode = iota
	// AuthSignature signs requests with an account RSA key.
	AuthSignature
)

// EnvFallback maps an environment variable onto a global flag. Fallbacks
// are consulted in declared order and only when the flag was not given on
// the command line.
type EnvFallback struct {
	Var  string
	Flag string
}

// Profile is one concrete binding of the CLI to a registry deployment.
// The command table is built from it once at construction and never
// mutated afterwards.
type Profile struct {
	// Name is the program name, used in usage and error output.
	Name        string
	Description string
	// URL is the deployment's default registry URL.
	URL  string
	Auth AuthMode
	// Channels enables the channel commands and the --channel flag.
	Channels bool
	// Admin enables the operator-only commands.
	Admin bool
	Env   []EnvFallback
	// Version is stamped at build time.
	Version string
	// UpdateRepo is the GitHub "owner/repo" slug for self-updates; empty
	// disables the selfupdate command.
	UpdateRepo string
}
