/*
Copyright 2026 Quilt Networks Ltd

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package crypto

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec"
)

func SHA256(hashBytes []byte) []byte {
	hasher := sha256.New()
	hasher.Write(hashBytes)
	hash := hasher.Sum(nil)
	return hash
}

func GenerateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey(btcec.S256())
}

func PrivKeyFromBytes(priv []byte) *btcec.PrivateKey {
	key, _ := btcec.PrivKeyFromBytes(btcec.S256(), priv)
	return key
}

func ParsePubKey(pub []byte) (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(pub, btcec.S256())
}

func FromPubKey(pub *btcec.PublicKey) []byte {
	if pub == nil {
		return nil
	}
	return pub.SerializeUncompressed()
}

// Sign produces an ECDSA signature of hash with key, encoded with
// EncodeSignature.
func Sign(key *btcec.PrivateKey, hash []byte) (string, error) {
	sig, err := key.Sign(hash)
	if err != nil {
		return "", err
	}
	return EncodeSignature(sig), nil
}

func Verify(pub *btcec.PublicKey, hash []byte, signature string) (bool, error) {
	sig, err := DecodeSignature(signature)
	if err != nil {
		return false, err
	}
	return sig.Verify(hash, pub), nil
}

// EncodeSignature returns the base36 r|s representation of an ECDSA
// signature. It is the canonical form used everywhere a signature appears in
// an Event.
func EncodeSignature(sig *btcec.Signature) string {
	return fmt.Sprintf("%s|%s", sig.R.Text(36), sig.S.Text(36))
}

func DecodeSignature(signature string) (*btcec.Signature, error) {
	parts := strings.Split(signature, "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid signature: %s", signature)
	}
	r, ok := new(big.Int).SetString(parts[0], 36)
	if !ok {
		return nil, fmt.Errorf("invalid signature r: %s", parts[0])
	}
	s, ok := new(big.Int).SetString(parts[1], 36)
	if !ok {
		return nil, fmt.Errorf("invalid signature s: %s", parts[1])
	}
	return &btcec.Signature{R: r, S: s}, nil
}
