package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ParseSignatureHeader splits an x-signature value of the form
// "ts=1704908010,v1=618c85...".
func ParseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1
}

// SignatureManifest builds the string Mercado Pago signs. Alphanumeric data
// ids are lowercased; parts with no value are omitted.
func SignatureManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if id := strings.ToLower(strings.TrimSpace(dataID)); id != "" {
		b.WriteString("id:" + id + ";")
	}
	if rid := strings.TrimSpace(requestID); rid != "" {
		b.WriteString("request-id:" + rid + ";")
	}
	if ts != "" {
		b.WriteString("ts:" + ts + ";")
	}
	return b.String()
}

// VerifyMercadoPagoSignature checks the x-signature header of a webhook
// delivery. A valid signature only proves origin; the payment is still
// re-fetched from the gateway.
func VerifyMercadoPagoSignature(signatureHeader, requestID, dataID, webhookSecret string) bool {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return false
	}
	ts, v1 := ParseSignatureHeader(signatureHeader)
	if ts == "" || v1 == "" {
		return false
	}

	expected, err := hex.DecodeString(strings.ToLower(v1))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(SignatureManifest(dataID, requestID, ts)))
	return hmac.Equal(mac.Sum(nil), expected)
}
