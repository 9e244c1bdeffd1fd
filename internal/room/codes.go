package room

import (
	"crypto/rand"
	"math/big"
)

// alphabet is the full [A-Z0-9] set join codes are drawn from.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeLength = 6

// generateCode draws codeLength characters from alphabet using
// crypto/rand's uniform int draw rather than math/rand, since join codes
// are handed out to untrusted LAN peers.
func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}
