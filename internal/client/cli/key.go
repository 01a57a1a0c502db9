package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/envelope"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// GetPassword prints a prompt to w and reads a passphrase from the
// terminal without echo. The caller wipes the returned bytes.
func GetPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func (a *App) keyFromConfig() (*envelope.KeyMaterial, error) {
	if a.config.MasterKey != "" {
		return envelope.KeyFromBase64(a.config.MasterKey)
	}
	if a.config.KeySalt == "" {
		return nil, fmt.Errorf("no master key configured: set --key, or --salt to derive one from a passphrase")
	}

	pass, err := GetPassword(a.errOut, "Passphrase: ")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pass)

	if len(pass) == 0 {
		return nil, fmt.Errorf("empty passphrase")
	}
	return envelope.DeriveKey(pass, []byte(a.config.KeySalt)), nil
}

// codec builds the envelope codec for the configured suite. Key bytes are
// wiped once the cipher has been set up.
func (a *App) codec() (*envelope.Codec, error) {
	key, err := a.loadKey()
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	return envelope.NewCodec(key, envelope.Suite(a.config.CipherSuite))
}
