// Package uuid validates image and account identifiers before they are
// allowed anywhere near the network.
package uuid

import (
	"regexp"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
)

var uuidRegexp = regexp.MustCompile(
	`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Valid reports whether s is a well-formed lowercase UUID.
func Valid(s string) bool {
	return uuidRegexp.MatchString(s)
}

// Check returns an InvalidUUID error when s is not a well-formed UUID.
func Check(s string) error {
	if !Valid(s) {
		return cmderr.InvalidUUID(s)
	}
	return nil
}
