// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package seed derives the deterministic seed that scopes simulated
// randomness to a single evaluation.
package seed

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash/fnv"
	"math/rand/v2"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// Derive hashes the snapshot's canonical form with SHA-256 and reduces the
// digest modulo 2^63, so identical snapshots always produce identical,
// non-negative seeds.
func Derive(s types.ContentSnapshot) uint64 {
	sum := sha256.Sum256([]byte(s.CanonicalForm()))
	// The low 63 bits of the big-endian digest are the digest mod 2^63.
	return binary.BigEndian.Uint64(sum[24:]) & (1<<63 - 1)
}

// Fingerprint returns the hex SHA-256 of the snapshot's canonical form.
// Downstream result caches key on it.
func Fingerprint(s types.ContentSnapshot) string {
	sum := sha256.Sum256([]byte(s.CanonicalForm()))
	return hex.EncodeToString(sum[:])
}

// LayerRand returns a random source private to one layer's view of one claim
// in one evaluation. It is keyed by the claim text rather than its position,
// so repeated sentences draw the same values regardless of goroutine
// scheduling. A provider abandoned after its deadline keeps only its own
// stream and cannot perturb the draws of the layers that follow.
func LayerRand(seed uint64, layer, claim string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(layer))
	h.Write([]byte{0})
	h.Write([]byte(claim))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}
