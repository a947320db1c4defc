package imgapi

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
)

// Manifest is the JSON metadata document describing an image record.
type Manifest struct {
	V           int    `json:"v,omitempty"`
	UUID        string `json:"uuid,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Homepage    string `json:"homepage,omitempty"`
	EULA        string `json:"eula,omitempty"`
	State       string `json:"state,omitempty"`
	Disabled    *bool  `json:"disabled,omitempty"`
	Public      *bool  `json:"public,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	Type        string `json:"type,omitempty"`
	OS          string `json:"os,omitempty"`
	Origin      string `json:"origin,omitempty"`

	Files []FileSpec `json:"files,omitempty"`
	Icon  bool       `json:"icon,omitempty"`
	ACL   []string   `json:"acl,omitempty"`

	Requirements      map[string]interface{} `json:"requirements,omitempty"`
	Tags              map[string]interface{} `json:"tags,omitempty"`
	GeneratePasswords *bool                  `json:"generate_passwords,omitempty"`
	Users             []User                 `json:"users,omitempty"`
	BillingTags       []string               `json:"billing_tags,omitempty"`
	Traits            map[string]interface{} `json:"traits,omitempty"`
	Channels          []string               `json:"channels,omitempty"`
	Error             map[string]interface{} `json:"error,omitempty"`
}

// FileSpec describes one binary file payload attached to an image.
type FileSpec struct {
	SHA1        string `json:"sha1,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Compression string `json:"compression,omitempty"`
	DatasetGUID string `json:"dataset_guid,omitempty"`
}

// User is an account entry the image expects to exist.
type User struct {
	Name string `json:"name"`
}

// ParseManifest decodes manifest JSON, classifying unparseable input as
// InvalidManifestData.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, cmderr.InvalidManifest(err)
	}
	return &m, nil
}

// ImageFields lists every field name usable as a list output column or
// sort key.
func ImageFields() []string {
	return []string{
		"uuid", "owner", "name", "version", "description", "state",
		"disabled", "public", "published_at", "pubdate", "type", "os",
		"origin", "size", "flags", "channels",
	}
}

// Record flattens the manifest into the display fields used by the table
// renderer.
func (m *Manifest) Record() map[string]string {
	rec := map[string]string{
		"uuid":         m.UUID,
		"owner":        m.Owner,
		"name":         m.Name,
		"version":      m.Version,
		"description":  m.Description,
		"state":        m.State,
		"published_at": m.PublishedAt,
		"type":         m.Type,
		"os":           m.OS,
		"origin":       m.Origin,
		"flags":        m.flags(),
	}
	if m.Disabled != nil {
		rec["disabled"] = strconv.FormatBool(*m.Disabled)
	}
	if m.Public != nil {
		rec["public"] = strconv.FormatBool(*m.Public)
	}
	if len(m.PublishedAt) >= len("2006-01-02") {
		rec["pubdate"] = m.PublishedAt[:len("2006-01-02")]
	}
	if len(m.Files) > 0 {
		rec["size"] = strconv.FormatInt(m.Files[0].Size, 10)
	}
	if len(m.Channels) > 0 {
		rec["channels"] = strings.Join(m.Channels, ",")
	}
	return rec
}

// flags is the compact state column: P public, X disabled or not yet
// active, I incremental (has an origin).
func (m *Manifest) flags() string {
	var b strings.Builder
	if m.Public != nil && *m.Public {
		b.WriteByte('P')
	}
	if (m.Disabled != nil && *m.Disabled) || (m.State != "" && m.State != "active") {
		b.WriteByte('X')
	}
	if m.Origin != "" {
		b.WriteByte('I')
	}
	return b.String()
}

// Channel is a named partition of the registry's image catalog.
type Channel struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// ChannelFields lists the table columns for channel listings.
func ChannelFields() []string {
	return []string{"name", "default", "description"}
}

// Record flattens the channel for the table renderer.
func (c *Channel) Record() map[string]string {
	rec := map[string]string{
		"name":        c.Name,
		"description": c.Description,
	}
	if c.Default {
		rec["default"] = "true"
	}
	return rec
}
