package midtrans

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// ComputeSignature builds the notification signature Midtrans sends:
// sha512(order_id + status_code + gross_amount + server_key), hex encoded.
func ComputeSignature(serverKey, orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature reports whether the signature on a notification matches
// the one derived from its fields. Comparison is constant time.
func (c *Client) VerifySignature(orderID, statusCode, grossAmount, signature string) bool {
	expected := ComputeSignature(c.serverKey, orderID, statusCode, grossAmount)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
