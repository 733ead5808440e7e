package rpc

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rentacar/crypto"
)

var (
	ErrMissingSignature = errors.New("rpc: envelope carries no signatures")
	ErrBadSignature     = errors.New("rpc: signature does not match signer")
	ErrDuplicateSigner  = errors.New("rpc: signer listed twice")
)

var callDomain = []byte("rentacar/call")

// Envelope is a signed mutating call. Params are hashed exactly as sent.
type Envelope struct {
	Method     string          `json:"method"`
	Params     json.RawMessage `json:"params"`
	Nonce      uint64          `json:"nonce"`
	Signatures []Signature     `json:"signatures"`
}

// Signature binds a declared signer to a recoverable secp256k1 signature.
type Signature struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

// CallDigest is the message every signer of a call signs.
func CallDigest(method string, params []byte, nonce uint64) []byte {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	return crypto.Digest(callDomain, []byte(method), params, nonceBytes[:])
}

// Digest returns the call digest of the envelope.
func (e *Envelope) Digest() []byte {
	return CallDigest(e.Method, e.Params, e.Nonce)
}

// Sign appends a signature by key.
func (e *Envelope) Sign(key *crypto.PrivateKey) error {
	sig, err := key.Sign(e.Digest())
	if err != nil {
		return err
	}
	e.Signatures = append(e.Signatures, Signature{
		Signer:    key.PubKey().Address().String(),
		Signature: hex.EncodeToString(sig),
	})
	return nil
}

// Verify recovers every signature and returns the verified signers mapped to
// the envelope nonce.
func (e *Envelope) Verify() (map[[20]byte]uint64, error) {
	if len(e.Signatures) == 0 {
		return nil, ErrMissingSignature
	}
	digest := e.Digest()
	signers := make(map[[20]byte]uint64, len(e.Signatures))
	for _, s := range e.Signatures {
		declared, err := crypto.ParseAccount(s.Signer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		sig, err := hex.DecodeString(strings.TrimPrefix(s.Signature, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		recovered, err := crypto.RecoverAddress(digest, sig)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		if recovered.Raw() != declared {
			return nil, fmt.Errorf("%w: %s", ErrBadSignature, s.Signer)
		}
		if _, dup := signers[declared]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSigner, s.Signer)
		}
		signers[declared] = e.Nonce
	}
	return signers, nil
}
