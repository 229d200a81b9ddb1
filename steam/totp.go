package steam

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
)

const codeChars = "23456789BCDFGHJKMNPQRTVWXY"

// GenerateTwoFactorCode returns the five character Steam Guard code for the given unix time.
func GenerateTwoFactorCode(sharedSecret string, current int64) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return "", err
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(current/30))

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	start := sum[19] & 0x0F
	full := binary.BigEndian.Uint32(sum[start:start+4]) & 0x7FFFFFFF

	code := make([]byte, 5)
	for i := range code {
		code[i] = codeChars[full%uint32(len(codeChars))]
		full /= uint32(len(codeChars))
	}

	return string(code), nil
}

// GenerateConfirmationCode signs a mobile confirmation request for tag at the given unix time.
func GenerateConfirmationCode(identitySecret, tag string, current int64) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(identitySecret)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(buf, uint64(current))
	buf = append(buf, tag...)

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
