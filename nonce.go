package kitsune_chat

import (
    crand "crypto/rand"
)

// Alphabet from which nonces are drawn: lowercase letters plus the digits
// 2-7, skipping digits that could be mistaken for letters. Exactly 32
// symbols, so a random byte maps onto it without bias.
const nonceAlphabet = "abcdefghijklmnopqrstuvwxyz234567"

// Length of every generated nonce.
const nonceLen = 10

// newNonce generate a random nonce from a cryptographically secure source.
func newNonce() (string, error) {
    var buf [nonceLen]byte

    _, err := crand.Read(buf[:])
    if err != nil {
        return "", err
    }

    for i := range buf {
        buf[i] = nonceAlphabet[int(buf[i]) & 0x1f]
    }

    return string(buf[:]), nil
}
