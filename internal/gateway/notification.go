package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// Notification is the asynchronous payment status callback the gateway posts
// after a checkout. Amounts arrive as strings in the gateway's own format;
// the ledger trusts nothing until the signature checks out.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type,omitempty"`
	TransactionID     string `json:"transaction_id,omitempty"`
	SignatureKey      string `json:"signature_key"`
	TransferProof     string `json:"transfer_proof,omitempty"`
}

// Gateway status vocabulary.
const (
	StatusCapture    = "capture"
	StatusSettlement = "settlement"
	StatusPending    = "pending"
	StatusDeny       = "deny"
	StatusExpire     = "expire"
	StatusCancel     = "cancel"
	StatusRefund     = "refund"

	FraudAccept    = "accept"
	FraudChallenge = "challenge"
	FraudDeny      = "deny"
)

// VerifySignature checks the SHA-512 digest the gateway computes over
// order_id + status_code + gross_amount + server key. Constant-time compare.
func (n Notification) VerifySignature(serverKey string) bool {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}

// Sign fills SignatureKey the way the gateway would. Used by tests and the
// sandbox tooling.
func (n *Notification) Sign(serverKey string) {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	n.SignatureKey = hex.EncodeToString(sum[:])
}
