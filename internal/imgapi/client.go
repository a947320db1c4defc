// Package imgapi is a client for the image-registry HTTP API. It exposes
// one typed method per API operation and maps every failure into the CLI
// error taxonomy: a structured error body becomes an APIError carrying the
// server's code, a transport failure becomes a ClientError, anything else
// an InternalError.
package imgapi

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
)

// Options configure a Client.
type Options struct {
	// URL is the registry base URL, e.g. https://images.example.com.
	URL string
	// Insecure skips TLS certificate verification.
	Insecure bool
	// Channel, when set, scopes every image operation to that channel.
	Channel string
	// User and IdentityFile enable HTTP-signature auth when both are set.
	User         string
	IdentityFile string
	// UserAgent identifies the calling binary.
	UserAgent string
}

// Client talks to one registry deployment.
type Client struct {
	base      *url.URL
	http      *http.Client
	channel   string
	signer    *Signer
	userAgent string
	log       *logrus.Entry
}

// New creates a Client for opts.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.URL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, cmderr.Usagef("invalid registry URL: %q", opts.URL)
	}
	c := &Client{
		base:      base,
		channel:   opts.Channel,
		userAgent: opts.UserAgent,
		log:       logrus.WithField("component", "imgapi"),
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	c.http = &http.Client{Transport: transport}
	if opts.User != "" && opts.IdentityFile != "" {
		signer, err := NewSigner(opts.User, opts.IdentityFile)
		if err != nil {
			return nil, cmderr.Usagef("%v", err)
		}
		c.signer = signer
	}
	return c, nil
}

func (c *Client) newRequest(method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if c.channel != "" && query.Get("channel") == "" {
		query = cloneValues(query)
		query.Set("channel", c.channel)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, cmderr.Internal(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.signer != nil {
		if err := c.signer.Sign(req); err != nil {
			return nil, cmderr.Internal(err)
		}
	}
	return req, nil
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q)+1)
	for k, vals := range q {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	c.log.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	}).Debug("request")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, cmderr.Client(err)
	}
	c.log.WithField("status", resp.StatusCode).Debug("response")
	return resp, nil
}

// errorFromResponse classifies a non-2xx response. The body is consumed.
func errorFromResponse(resp *http.Response) error {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Code != "" {
		return cmderr.API(resp.StatusCode, body.Code, body.Message)
	}
	return &cmderr.Error{
		Code: cmderr.CodeClient,
		Message: fmt.Sprintf("%s (HTTP %d)",
			http.StatusText(resp.StatusCode), resp.StatusCode),
	}
}

// reqJSON performs a request with an optional JSON body and decodes the
// JSON response into out (which may be nil).
func (c *Client) reqJSON(method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return cmderr.Internal(err)
		}
		body = bytes.NewReader(data)
	}
	if query == nil {
		query = url.Values{}
	}
	req, err := c.newRequest(method, path, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}
	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cmderr.Internal(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// Ping verifies the registry endpoint responds.
func (c *Client) Ping() (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.reqJSON(http.MethodGet, "/ping", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminGetState dumps internal server state, a debugging aid on admin
// deployments.
func (c *Client) AdminGetState() (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.reqJSON(http.MethodGet, "/state", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOptions page and scope an image listing.
type ListOptions struct {
	Marker string
	Limit  int
}

// ListImages lists image records matching the field=value filters.
func (c *Client) ListImages(filter url.Values, opts ListOptions) ([]*Manifest, error) {
	query := cloneValues(filter)
	if opts.Marker != "" {
		query.Set("marker", opts.Marker)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	var out []*Manifest
	if err := c.reqJSON(http.MethodGet, "/images", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetImage fetches one image manifest.
func (c *Client) GetImage(uuid string) (*Manifest, error) {
	var out Manifest
	if err := c.reqJSON(http.MethodGet, "/images/"+uuid, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FileInfo describes a streamed payload response.
type FileInfo struct {
	Size        int64
	ContentType string
	// ContentMD5 is the hex form of the Content-MD5 response header, when
	// present.
	ContentMD5 string
}

func fileInfoFrom(resp *http.Response) *FileInfo {
	info := &FileInfo{
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if b64 := resp.Header.Get("Content-MD5"); b64 != "" {
		if raw, err := decodeBase64(b64); err == nil {
			info.ContentMD5 = raw
		}
	}
	return info
}

func decodeBase64(s string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// GetFileStream opens the image's file payload for reading.
func (c *Client) GetFileStream(uuid string) (io.ReadCloser, *FileInfo, error) {
	return c.getStream("/images/" + uuid + "/file")
}

// GetIconStream opens the image's icon payload for reading.
func (c *Client) GetIconStream(uuid string) (io.ReadCloser, *FileInfo, error) {
	return c.getStream("/images/" + uuid + "/icon")
}

func (c *Client) getStream(path string) (io.ReadCloser, *FileInfo, error) {
	req, err := c.newRequest(http.MethodGet, path, url.Values{}, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, nil, errorFromResponse(resp)
	}
	return resp.Body, fileInfoFrom(resp), nil
}

// CreateImage creates a new unactivated image record.
func (c *Client) CreateImage(m *Manifest) (*Manifest, error) {
	var out Manifest
	if err := c.reqJSON(http.MethodPost, "/images", nil, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportImage creates an image record preserving its UUID, an operator
// action for copying records between deployments.
func (c *Client) ImportImage(m *Manifest, skipOwnerCheck bool) (*Manifest, error) {
	query := url.Values{"action": {"import"}}
	if skipOwnerCheck {
		query.Set("skip_owner_check", "true")
	}
	var out Manifest
	if err := c.reqJSON(http.MethodPost, "/images/"+m.UUID, query, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateImage modifies mutable manifest fields.
func (c *Client) UpdateImage(uuid string, fields map[string]interface{}) (*Manifest, error) {
	query := url.Values{"action": {"update"}}
	var out Manifest
	if err := c.reqJSON(http.MethodPost, "/images/"+uuid, query, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddFileOptions describe a file payload upload.
type AddFileOptions struct {
	Body        io.Reader
	Size        int64
	Compression string
	SHA1        string
	DatasetGUID string
}

// AddImageFile uploads the image's file payload. The returned manifest
// carries the digest the server computed while storing it.
func (c *Client) AddImageFile(uuid string, opts AddFileOptions) (*Manifest, error) {
	query := url.Values{}
	if opts.Compression != "" {
		query.Set("compression", opts.Compression)
	}
	if opts.SHA1 != "" {
		query.Set("sha1", opts.SHA1)
	}
	if opts.DatasetGUID != "" {
		query.Set("dataset_guid", opts.DatasetGUID)
	}
	req, err := c.newRequest(http.MethodPut, "/images/"+uuid+"/file", query, opts.Body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = opts.Size
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, errorFromResponse(resp)
	}
	defer resp.Body.Close()
	var out Manifest
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, cmderr.Internal(fmt.Errorf("failed to decode response: %w", err))
	}
	return &out, nil
}

// AddImageIcon uploads the image's icon payload.
func (c *Client) AddImageIcon(uuid, contentType string, body io.Reader, size int64) (*Manifest, error) {
	req, err := c.newRequest(http.MethodPut, "/images/"+uuid+"/icon", url.Values{}, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, errorFromResponse(resp)
	}
	defer resp.Body.Close()
	var out Manifest
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, cmderr.Internal(fmt.Errorf("failed to decode response: %w", err))
	}
	return &out, nil
}

// DeleteImageIcon removes the image's icon payload.
func (c *Client) DeleteImageIcon(uuid string) (*Manifest, error) {
	var out Manifest
	if err := c.reqJSON(http.MethodDelete, "/images/"+uuid+"/icon", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteImage removes the image record and its payloads.
func (c *Client) DeleteImage(uuid string) error {
	return c.reqJSON(http.MethodDelete, "/images/"+uuid, nil, nil, nil)
}

// ExportImage asks the server to export the image to a storage path.
func (c *Client) ExportImage(uuid, mantaPath string) (map[string]interface{}, error) {
	query := url.Values{"action": {"export"}, "manta_path": {mantaPath}}
	var out map[string]interface{}
	if err := c.reqJSON(http.MethodPost, "/images/"+uuid, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) imageAction(uuid, action string) (*Manifest, error) {
	query := url.Values{"action": {action}}
	var out Manifest
	if err := c.reqJSON(http.MethodPost, "/images/"+uuid, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivateImage makes an unactivated image available for use.
func (c *Client) ActivateImage(uuid string) (*Manifest, error) {
	return c.imageAction(uuid, "activate")
}

// DisableImage hides an image from non-operator listings.
func (c *Client) DisableImage(uuid string) (*Manifest, error) {
	return c.imageAction(uuid, "disable")
}

// EnableImage reverses DisableImage.
func (c *Client) EnableImage(uuid string) (*Manifest, error) {
	return c.imageAction(uuid, "enable")
}

func (c *Client) aclAction(uuid, action string, accounts []string) (*Manifest, error) {
	query := url.Values{"action": {action}}
	var out Manifest
	if err := c.reqJSON(http.MethodPost, "/images/"+uuid+"/acl", query, accounts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddImageACL grants the accounts access to a private image.
func (c *Client) AddImageACL(uuid string, accounts []string) (*Manifest, error) {
	return c.aclAction(uuid, "add", accounts)
}

// RemoveImageACL revokes the accounts' access to a private image.
func (c *Client) RemoveImageACL(uuid string, accounts []string) (*Manifest, error) {
	return c.aclAction(uuid, "remove", accounts)
}

// ListChannels lists the registry's channels.
func (c *Client) ListChannels() ([]*Channel, error) {
	var out []*Channel
	if err := c.reqJSON(http.MethodGet, "/channels", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChannelAddImage adds the image to the named channel.
func (c *Client) ChannelAddImage(uuid, channel string) (*Manifest, error) {
	query := url.Values{"action": {"channel-add"}}
	body := map[string]string{"channel": channel}
	var out Manifest
	if err := c.reqJSON(http.MethodPost, "/images/"+uuid, query, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminChangeStor moves the image's file to a different storage backend.
func (c *Client) AdminChangeStor(uuid, stor string) (*Manifest, error) {
	query := url.Values{"action": {"change-stor"}, "stor": {stor}}
	var out Manifest
	if err := c.reqJSON(http.MethodPost, "/images/"+uuid, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminReloadAuthKeys tells the server to reload its auth keys.
func (c *Client) AdminReloadAuthKeys() error {
	return c.reqJSON(http.MethodPost, "/authkeys/reload", nil, nil, nil)
}
