package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
)

// signatureLen is the number of hex characters of the HMAC sent.
const signatureLen = 32

// Sign returns the request signature of the body sent at the given timestamp.
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte{':'})
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))[:signatureLen]
}

// Verify checks the request signature of a body.
func Verify(secret []byte, timestamp string, body []byte, sig string) bool {
	want := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(want), []byte(sig))
}

// EncodeData encodes request data the way signed requests carry it.
func EncodeData(data interface{}) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrap(err, "api: error encoding data")
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeData decodes the data of a signed request.
func DecodeData(s string, v interface{}) error {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return errors.Wrap(err, "api: error decoding data")
	}
	if err = json.Unmarshal(b, v); err != nil {
		return errors.Wrap(err, "api: error decoding data")
	}
	return nil
}
