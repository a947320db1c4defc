// Package cli implements the image-registry command-line client shared by
// the deployment-specific binaries in cmd/.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/imgapi"
)

// CLI is one instance of the client, bound to a deployment profile. The
// command table and flag schema are built once in New and are read-only
// afterwards.
type CLI struct {
	profile Profile
	root    *cobra.Command
	client  *imgapi.Client
	args    []string

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	// Global flag values.
	url      string
	user     string
	identity string
	channel  string
	debug    bool
	insecure bool
	quiet    bool
}

// New builds a CLI for the profile. Feature-gated commands (channels,
// admin, selfupdate) are included or excluded here and never patched in or
// out later.
func New(p Profile) *CLI {
	c := &CLI{
		profile: p,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		stdin:   os.Stdin,
	}

	root := &cobra.Command{
		Use:               p.Name,
		Short:             p.Description,
		Version:           p.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.url, "url", "U", p.URL, "registry API URL")
	pf.BoolVarP(&c.debug, "debug", "v", false, "verbose debug output and error traces")
	pf.BoolVarP(&c.insecure, "insecure", "k", false, "skip TLS certificate verification")
	pf.BoolVarP(&c.quiet, "quiet", "q", false, "suppress progress output")
	if p.Auth == AuthSignature {
		pf.StringVarP(&c.user, "user", "u", "", "account login name for request signing")
		pf.StringVarP(&c.identity, "identity", "i", "", "path to the RSA key used to sign requests")
	}
	if p.Channels {
		pf.StringVarP(&c.channel, "channel", "C", "", "image channel to scope operations to")
	}

	root.AddCommand(
		c.newPingCmd(),
		c.newListCmd(),
		c.newGetCmd(),
		c.newGetFileCmd(),
		c.newGetIconCmd(),
		c.newCreateCmd(),
		c.newImportCmd(),
		c.newImportDockerCmd(),
		c.newExportCmd(),
		c.newUpdateCmd(),
		c.newAddFileCmd(),
		c.newAddIconCmd(),
		c.newDeleteIconCmd(),
		c.newActivateCmd(),
		c.newDisableCmd(),
		c.newEnableCmd(),
		c.newDeleteCmd(),
		c.newAddACLCmd(),
		c.newRemoveACLCmd(),
	)
	if p.Channels {
		root.AddCommand(c.newChannelsCmd(), c.newChannelAddCmd())
	}
	if p.Admin {
		root.AddCommand(c.newStateCmd(), c.newChangeStorCmd(), c.newReloadAuthKeysCmd())
	}
	if p.UpdateRepo != "" {
		root.AddCommand(c.newSelfupdateCmd())
	}

	root.SetHelpCommand(c.newHelpCmd())
	root.SetFlagErrorFunc(c.flagError)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	c.root = root
	return c
}

// Execute runs one command for the given argument vector.
func (c *CLI) Execute(args []string) error {
	c.args = args
	c.root.SetArgs(args)
	err := c.root.Execute()
	if err == nil {
		return nil
	}
	var ce *cmderr.Error
	var me *cmderr.MultiError
	if errors.As(err, &ce) || errors.As(err, &me) {
		return err
	}
	if name, ok := unknownCommandName(err); ok {
		return cmderr.UnknownCommand(name)
	}
	return err
}

// Main runs the CLI against os.Args and returns the process exit status.
func Main(p Profile) int {
	c := New(p)
	err := c.Execute(os.Args[1:])
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", p.Name, err)
	if c.debug {
		for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
			fmt.Fprintf(os.Stderr, "    caused by: %v\n", cause)
		}
	}
	return cmderr.ExitStatus(err)
}

// setup runs before every command: env-var fallbacks first, then logging.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	c.applyEnvFallbacks()
	logrus.SetOutput(c.stderr)
	if c.debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func (c *CLI) applyEnvFallbacks() {
	pf := c.root.PersistentFlags()
	for _, ef := range c.profile.Env {
		f := pf.Lookup(ef.Flag)
		if f == nil || f.Changed {
			continue
		}
		if v := os.Getenv(ef.Var); v != "" {
			pf.Set(ef.Flag, v)
		}
	}
}

// api returns the registry client, building it on first use.
func (c *CLI) api() (*imgapi.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	if c.url == "" {
		return nil, cmderr.Usagef("no registry URL: use --url or set it in the environment")
	}
	if (c.user == "") != (c.identity == "") {
		return nil, cmderr.Usagef("--user and --identity must be given together")
	}
	client, err := imgapi.New(imgapi.Options{
		URL:          c.url,
		Insecure:     c.insecure,
		Channel:      c.channel,
		User:         c.user,
		IdentityFile: c.identity,
		UserAgent:    c.profile.Name + "/" + c.profile.Version,
	})
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

func (c *CLI) newHelpCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "help [COMMAND]",
		Aliases: []string{"?"},
		Short:   "Show help for a command",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return c.root.Help()
			}
			target, _, err := c.root.Find(args)
			if err != nil || target == c.root {
				return cmderr.NoHelp(args[0])
			}
			return target.Help()
		},
	}
}

// flagError classifies pflag parse failures. When the argv contains flags
// outside the merged global+command schema, every one of them is named in
// a single UnknownOption error.
func (c *CLI) flagError(cmd *cobra.Command, err error) error {
	if unknown := collectUnknownFlags(cmd, c.args); len(unknown) > 0 {
		return cmderr.UnknownOption(unknown...)
	}
	return cmderr.Usagef("%v", err)
}

// collectUnknownFlags scans args for long and short flags that the
// resolved command's merged flag set does not declare.
func collectUnknownFlags(cmd *cobra.Command, args []string) []string {
	lookup := func(name string) *pflag.Flag {
		if f := cmd.Flags().Lookup(name); f != nil {
			return f
		}
		return cmd.InheritedFlags().Lookup(name)
	}
	shorthand := func(s string) (takesValue, known bool) {
		f := cmd.Flags().ShorthandLookup(s)
		if f == nil {
			f = cmd.InheritedFlags().ShorthandLookup(s)
		}
		if f == nil {
			if s == "h" {
				return false, true
			}
			return false, false
		}
		return f.Value.Type() != "bool", true
	}

	var unknown []string
	seen := map[string]bool{}
	add := func(flag string) {
		if !seen[flag] {
			seen[flag] = true
			unknown = append(unknown, flag)
		}
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		switch {
		case strings.HasPrefix(arg, "--"):
			name := arg[2:]
			hasValue := false
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				name = name[:eq]
				hasValue = true
			}
			f := lookup(name)
			if f == nil {
				if name != "help" && name != "version" {
					add("--" + name)
				}
				continue
			}
			// A declared non-boolean flag consumes the next token.
			if f.Value.Type() != "bool" && !hasValue {
				i++
			}
		case len(arg) > 1 && arg[0] == '-':
			for j := 1; j < len(arg); j++ {
				s := string(arg[j])
				takesValue, known := shorthand(s)
				if !known {
					add("-" + s)
					continue
				}
				if takesValue {
					// The value is the rest of the cluster or the next token.
					if j == len(arg)-1 {
						i++
					}
					break
				}
			}
		}
	}
	return unknown
}

func unknownCommandName(err error) (string, bool) {
	msg := err.Error()
	if !strings.HasPrefix(msg, "unknown command ") {
		return "", false
	}
	if i := strings.IndexByte(msg, '"'); i >= 0 {
		if j := strings.IndexByte(msg[i+1:], '"'); j >= 0 {
			return msg[i+1 : i+1+j], true
		}
	}
	return msg, true
}
