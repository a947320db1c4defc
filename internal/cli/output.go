package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
)

// printJSON pretty-prints v with 2-space indentation.
func (c *CLI) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exactArgs is cobra.ExactArgs with a usage-classified error.
func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return cmderr.Usagef("incorrect number of arguments: usage: %s", usage)
		}
		return nil
	}
}

// minimumArgs is cobra.MinimumNArgs with a usage-classified error.
func minimumArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return cmderr.Usagef("incorrect number of arguments: usage: %s", usage)
		}
		return nil
	}
}

// splitFields splits a comma-delimited field list, dropping empty items.
func splitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// readManifestInput reads manifest JSON from path, or from stdin when path
// is "-" or empty.
func (c *CLI) readManifestInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, cmderr.Internal(fmt.Errorf("failed to read manifest from stdin: %w", err))
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cmderr.Usagef("cannot read manifest file: %v", err)
	}
	return data, nil
}

// compressionFromPath guesses the compression of a file payload from its
// extension.
func compressionFromPath(path string) string {
	switch filepath.Ext(path) {
	case ".gz", ".tgz":
		return "gzip"
	case ".bz2":
		return "bzip2"
	case ".xz":
		return "xz"
	default:
		return "none"
	}
}

// fileExtension is the inverse mapping, used to name downloaded payloads.
func fileExtension(compression string) string {
	switch compression {
	case "gzip":
		return ".gz"
	case "bzip2":
		return ".bz2"
	case "xz":
		return ".xz"
	default:
		return ""
	}
}

// iconContentType maps an icon file extension to its content type.
func iconContentType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png", nil
	case ".gif":
		return "image/gif", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	default:
		return "", cmderr.Usagef("cannot determine icon content type from %q (expect .png, .gif or .jpg)", path)
	}
}
