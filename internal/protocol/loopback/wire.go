package loopback

import (
	"encoding/base64"
	"errors"
	"strings"
)

const (
	prefix = "?VEIL:"
	// Tag is appended to plaintext when the policy asks to advertise
	// encryption support.
	Tag = " ?VEIL?"
)

type kind string

const (
	kindHello    kind = "HELLO"
	kindReply    kind = "REPLY"
	kindMessage  kind = "MSG"
	kindEnd      kind = "END"
	kindAuthInit kind = "SMP1"
	kindAuthResp kind = "SMP2"
	kindAuthStop kind = "SMPX"
)

var errMalformed = errors.New("malformed protocol message")

func encode(k kind, fields ...[]byte) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = base64.StdEncoding.EncodeToString(f)
	}
	return prefix + string(k) + ":" + strings.Join(parts, "|")
}

// decode splits a protocol message. ok is false for ordinary text.
func decode(s string) (k kind, fields [][]byte, ok bool, err error) {
	if !strings.HasPrefix(s, prefix) {
		return "", nil, false, nil
	}
	rest := strings.TrimPrefix(s, prefix)
	head, body, _ := strings.Cut(rest, ":")
	k = kind(head)
	if body == "" {
		return k, nil, true, nil
	}
	for _, part := range strings.Split(body, "|") {
		b, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return k, nil, true, errMalformed
		}
		fields = append(fields, b)
	}
	return k, fields, true, nil
}
