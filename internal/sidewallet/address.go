package sidewallet

import solanago "github.com/gagliardetto/solana-go"

// ValidAddress reports whether s decodes as a 32-byte base58 Solana
// public key. The length check from the data model (32-44 characters)
// falls naturally out of base58 decoding a 32-byte value, so a decode
// failure is sufficient on its own.
func ValidAddress(s string) bool {
	n := len(s)
	if n < 32 || n > 44 {
		return false
	}
	_, err := solanago.PublicKeyFromBase58(s)
	return err == nil
}
