package kaiterra

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	headerClient = "X-Kaiterra-Client"
	headerTime   = "X-Kaiterra-Time"
	headerHMAC   = "X-Kaiterra-HMAC"
)

// Auth prepares a request for one of the two schemes the API accepts.
// Authorize returns the relative URL with its encoded query attached and
// sets whatever headers the scheme requires.
type Auth interface {
	Authorize(rel string, params url.Values, body []byte, hdr http.Header) (string, error)
}

// KeyAuth passes the developer key directly as the 'key' query parameter.
// The simpler of the two schemes, suitable for clients running on trusted
// hosts such as a researcher's workstation or a server.
type KeyAuth struct {
	Key string
}

func (a KeyAuth) Authorize(rel string, params url.Values, body []byte, hdr http.Header) (string, error) {
	if a.Key == "" {
		return "", fmt.Errorf("developer key is required")
	}
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("key", a.Key)
	return rel + "?" + q.Encode(), nil
}

// HMACAuth signs the request with the client's secret key so the key itself
// never appears on the wire. The current time is part of the signed payload,
// which makes replaying a captured request harder.
type HMACAuth struct {
	ClientID  string
	SecretHex string

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (a HMACAuth) Authorize(rel string, params url.Values, body []byte, hdr http.Header) (string, error) {
	if a.ClientID == "" || a.SecretHex == "" {
		return "", fmt.Errorf("client id and hmac secret are required")
	}
	key, err := hex.DecodeString(a.SecretHex)
	if err != nil {
		return "", fmt.Errorf("decode hmac secret: %w", err)
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	relWithQuery := rel
	if len(params) > 0 {
		relWithQuery += "?" + params.Encode()
	}

	// Timestamp travels as unix seconds in lowercase hex.
	ts := strconv.FormatInt(now().Unix(), 16)
	hdr.Set(headerClient, a.ClientID)
	hdr.Set(headerTime, ts)

	mac := hmac.New(sha256.New, key)
	mac.Write(signPayload(a.ClientID, ts, relWithQuery, body))
	hdr.Set(headerHMAC, base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	return relWithQuery, nil
}

// signPayload mirrors the server's signature check: the auth headers in
// query-string form, then the relative URL including its encoded query,
// then the raw body.
func signPayload(clientID, ts, relWithQuery string, body []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s=%s&%s=%s", headerClient, clientID, headerTime, ts)
	b.WriteString(relWithQuery)
	b.Write(body)
	return b.Bytes()
}
