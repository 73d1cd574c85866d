package creds

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

// TokenPrefix tags every session token.
const TokenPrefix = "kentech_multibot_"

var ErrInvalidToken = errors.New("invalid session token")

// Encode turns the raw credential file into a session token.
func Encode(raw []byte) string {
	return TokenPrefix + base64.StdEncoding.EncodeToString(raw)
}

// Decode reverses Encode byte for byte.
func Decode(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, TokenPrefix) {
		return nil, errors.Wrap(ErrInvalidToken, "missing "+TokenPrefix+" prefix")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(token, TokenPrefix))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if len(raw) == 0 {
		return nil, errors.Wrap(ErrInvalidToken, "empty credential payload")
	}
	return raw, nil
}
