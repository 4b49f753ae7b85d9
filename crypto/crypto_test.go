package crypto

import (
	"io/ioutil"
	"os"
	"testing"
)

func TestSignVerify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	hash := SHA256([]byte("the quick brown fox"))

	sig, err := Sign(key, hash)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := Verify(key.PubKey(), hash, sig)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("signature should verify")
	}

	otherHash := SHA256([]byte("jumps over the lazy dog"))
	ok, err = Verify(key.PubKey(), otherHash, sig)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("signature should not verify against another hash")
	}
}

func TestSignatureEncoding(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	hash := SHA256([]byte("payload"))

	encoded, err := Sign(key, hash)
	if err != nil {
		t.Fatal(err)
	}

	sig, err := DecodeSignature(encoded)
	if err != nil {
		t.Fatal(err)
	}

	if reencoded := EncodeSignature(sig); reencoded != encoded {
		t.Fatalf("signature should survive a decode/encode round trip; got %s, want %s",
			reencoded, encoded)
	}

	if _, err := DecodeSignature("garbage"); err == nil {
		t.Fatal("decoding a malformed signature should fail")
	}
}

func TestParsePubKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	raw := FromPubKey(key.PubKey())

	pub, err := ParsePubKey(raw)
	if err != nil {
		t.Fatal(err)
	}

	if !pub.IsEqual(key.PubKey()) {
		t.Fatal("parsed public key should equal the original")
	}
}

func TestPem(t *testing.T) {
	// Create a test dir
	dir, err := ioutil.TempDir("", "quilt")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	// Create the PEM key
	pemKey := NewPemKey(dir)

	// Try a read, should get nothing
	key, err := pemKey.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if key != nil {
		t.Fatalf("key is not nil")
	}

	// Initialize a key
	key, _ = GenerateKey()
	if err := pemKey.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	// Try a read, should get key
	nKey, err := pemKey.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !nKey.PubKey().IsEqual(key.PubKey()) {
		t.Fatalf("Keys do not match")
	}
}
