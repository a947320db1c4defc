package imgapi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/crypto/ssh"
)

// Signer signs the Date header of outgoing requests with an account's RSA
// key, the HTTP-signature scheme the public and update-channel deployments
// require.
type Signer struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewSigner loads the PEM private key at identityFile for the given
// account. Only RSA keys are supported.
func NewSigner(user, identityFile string) (*Signer, error) {
	data, err := os.ReadFile(identityFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}
	raw, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity file %q: %w", identityFile, err)
	}
	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("identity file %q is not an RSA key", identityFile)
	}
	pub, err := ssh.NewPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	return &Signer{
		keyID: fmt.Sprintf("/%s/keys/%s", user, ssh.FingerprintLegacyMD5(pub)),
		key:   key,
	}, nil
}

// Sign adds the Authorization header for req. The Date header must already
// be set.
func (s *Signer) Sign(req *http.Request) error {
	date := req.Header.Get("Date")
	if date == "" {
		return fmt.Errorf("cannot sign request without a Date header")
	}
	hashed := sha256.Sum256([]byte(date))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, hashed[:])
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	req.Header.Set("Authorization",
		fmt.Sprintf("Signature keyId=%q,algorithm=%q,signature=%q",
			s.keyID, "rsa-sha256", base64.StdEncoding.EncodeToString(sig)))
	return nil
}
