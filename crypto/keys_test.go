package crypto

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := [20]byte{}
	copy(raw[:], bytes.Repeat([]byte{0x11}, 20))

	encoded := FormatAccount(raw)
	if !strings.HasPrefix(encoded, "rac1") {
		t.Fatalf("unexpected encoding %s", encoded)
	}
	decoded, err := ParseAccount(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decoded != raw {
		t.Fatalf("round trip mismatch")
	}

	asset, err := ParseAccount(FormatAsset(raw))
	if err != nil {
		t.Fatalf("parse asset: %v", err)
	}
	if asset != raw {
		t.Fatalf("asset round trip mismatch")
	}
}

func TestParseAccountRejectsForeignPrefix(t *testing.T) {
	raw := make([]byte, 20)
	foreign := NewAddress("btc", raw).String()
	if _, err := ParseAccount(foreign); err == nil {
		t.Fatalf("expected prefix error")
	}
	if _, err := ParseAccount("not-an-address"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSignAndRecover(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	digest := Digest([]byte("rentacar"), []byte("rental"))
	sig, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := RecoverAddress(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got.String() != key.PubKey().Address().String() {
		t.Fatalf("recovered %s, want %s", got, key.PubKey().Address())
	}

	other := Digest([]byte("tampered"))
	wrong, err := RecoverAddress(other, sig)
	if err == nil && wrong.String() == got.String() {
		t.Fatalf("signature must not verify for a different digest")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "admin.json")
	if err := SaveToKeystore(path, key, "secret"); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromKeystore(path, "secret")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(loaded.Bytes(), key.Bytes()) {
		t.Fatalf("loaded key differs")
	}
	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatalf("expected passphrase error")
	}
}
