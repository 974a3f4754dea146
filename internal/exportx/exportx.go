// Package exportx writes and reads passphrase-protected token exports using
// age scrypt recipients.
package exportx

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
)

// MinPassphraseLength is the shortest passphrase Seal accepts.
const MinPassphraseLength = 8

const (
	armorHeader = "-----BEGIN AGE ENCRYPTED FILE-----"
	ageMagic    = "age-encryption.org/"
)

// Sealer encrypts exports. The zero value uses age defaults and binary
// output.
type Sealer struct {
	// WorkFactor is the scrypt log2(N); 0 keeps the age default.
	WorkFactor int
	// Armor writes PEM-style ASCII output.
	Armor bool
}

// Seal encrypts data with passphrase and writes it to w.
func (s Sealer) Seal(w io.Writer, data []byte, passphrase string) error {
	if len(passphrase) < MinPassphraseLength {
		return fmt.Errorf("%w: passphrase must be at least %d characters", common.ErrInvalidCredential, MinPassphraseLength)
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if s.WorkFactor > 0 {
		recipient.SetWorkFactor(s.WorkFactor)
	}

	out := w
	var armored io.WriteCloser
	if s.Armor {
		armored = armor.NewWriter(w)
		out = armored
	}

	enc, err := age.Encrypt(out, recipient)
	if err != nil {
		return fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing age encryption: %w", err)
	}
	if armored != nil {
		if err := armored.Close(); err != nil {
			return fmt.Errorf("finalizing armor: %w", err)
		}
	}
	return nil
}

// Seal encrypts data with the default Sealer.
func Seal(w io.Writer, data []byte, passphrase string) error {
	return Sealer{}.Seal(w, data, passphrase)
}

// IsSealed reports whether data looks like an age file, armored or not.
func IsSealed(data []byte) bool {
	data = bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(data, []byte(ageMagic)) || bytes.HasPrefix(data, []byte(armorHeader))
}

// Open decrypts an export written by Seal, armored or not. A wrong
// passphrase yields ErrWrongCredential.
func Open(r io.Reader, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidCredential, err)
	}

	br := bufio.NewReader(r)
	var in io.Reader = br
	if head, _ := br.Peek(len(armorHeader)); bytes.Equal(head, []byte(armorHeader)) {
		in = armor.NewReader(br)
	}

	dec, err := age.Decrypt(in, identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) || errors.Is(err, age.ErrIncorrectIdentity) {
			return nil, fmt.Errorf("%w: export passphrase", common.ErrWrongCredential)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrCorruptStore, err)
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCorruptStore, err)
	}
	return data, nil
}
