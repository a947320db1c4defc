// Package docker resolves images in Docker registries so they can be
// imported into the image registry as docker-type image records.
package docker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/sirupsen/logrus"

	"github.com/imgapi/imgapi-cli/internal/imgapi"
)

// Source is a resolved Docker image ready for import.
type Source struct {
	Ref    name.Reference
	Image  v1.Image
	Digest v1.Hash
	Config *v1.ConfigFile
}

// Resolve fetches the manifest and config for imageRef (e.g.
// "alpine:3.20") from its registry for the given platform. Credentials
// come from the ambient Docker keychain.
func Resolve(ctx context.Context, imageRef, platformSpec string) (*Source, error) {
	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image reference %q: %w", imageRef, err)
	}
	platform, err := v1.ParsePlatform(platformSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse platform %q: %w", platformSpec, err)
	}

	logrus.WithFields(logrus.Fields{
		"ref":      ref.String(),
		"platform": platformSpec,
	}).Debug("resolving docker image")

	desc, err := remote.Get(ref,
		remote.WithContext(ctx),
		remote.WithPlatform(*platform),
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image descriptor: %w", err)
	}
	img, err := desc.Image()
	if err != nil {
		return nil, fmt.Errorf("failed to get image from descriptor: %w", err)
	}
	digest, err := img.Digest()
	if err != nil {
		return nil, fmt.Errorf("failed to get image digest: %w", err)
	}
	config, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to get config file: %w", err)
	}
	return &Source{Ref: ref, Image: img, Digest: digest, Config: config}, nil
}

// FlattenedFilesystem returns the image's layers squashed into one
// uncompressed tar stream, the file payload stored for a docker-type
// image record.
func (s *Source) FlattenedFilesystem() io.ReadCloser {
	return mutate.Extract(s.Image)
}

// Manifest builds the image-record manifest skeleton for the resolved
// image. The file entry is appended separately once the payload has been
// spooled and digested.
func (s *Source) Manifest() *imgapi.Manifest {
	repo := s.Ref.Context().RepositoryStr()
	version := s.Ref.Identifier()
	if strings.HasPrefix(version, "sha256:") {
		version = strings.TrimPrefix(version, "sha256:")[:12]
	}
	osName := s.Config.OS
	switch osName {
	case "linux", "windows":
	default:
		osName = "other"
	}
	return &imgapi.Manifest{
		V:       2,
		Name:    repo,
		Version: version,
		Type:    "docker",
		OS:      osName,
		Tags: map[string]interface{}{
			"docker:repo":   s.Ref.Context().String(),
			"docker:id":     s.Digest.String(),
			"docker:arch":   s.Config.Architecture,
			"docker:source": s.Ref.String(),
		},
	}
}
