package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Credentials are the passwords tried against an encrypted document. Either
// field may be empty.
type Credentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

// ErrWrongPassword reports that decryption was attempted with credentials the
// document does not accept.
var ErrWrongPassword = errors.New("document rejected the supplied password")

// IsEncrypted reports whether the document requires a password to read.
func IsEncrypted(data []byte) (bool, error) {
	dir, err := os.MkdirTemp("", "pdfmask-crypt-*")
	if err != nil {
		return false, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("writing document: %w", err)
	}

	if _, err := api.PageCountFile(path); err != nil {
		if isPasswordError(err) {
			return true, nil
		}
		return false, fmt.Errorf("checking encryption status: %w", err)
	}
	return false, nil
}

// Decrypt returns a decrypted copy of data. Unencrypted input passes through
// unchanged; rejected credentials surface as ErrWrongPassword.
func Decrypt(data []byte, creds Credentials) ([]byte, error) {
	encrypted, err := IsEncrypted(data)
	if err != nil {
		return nil, err
	}
	if !encrypted {
		return data, nil
	}

	dir, err := os.MkdirTemp("", "pdfmask-crypt-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.UserPW = creds.UserPassword
	conf.OwnerPW = creds.OwnerPassword

	out := filepath.Join(dir, "out.pdf")
	if err := api.DecryptFile(in, out, conf); err != nil {
		if isPasswordError(err) {
			return nil, fmt.Errorf("%w: %s", ErrWrongPassword, err)
		}
		return nil, fmt.Errorf("decrypting document: %w", err)
	}

	decrypted, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted document: %w", err)
	}
	return decrypted, nil
}

// isPasswordError matches the error texts pdfcpu produces for missing or
// wrong credentials.
func isPasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
