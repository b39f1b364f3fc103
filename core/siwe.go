package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var siweHeader = regexp.MustCompile(`^(.+?) wants you to sign in with your Ethereum account:`)

// Message is a parsed Sign-In-With-Ethereum challenge.
// Optional fields are empty (or nil) when the line was absent.
type Message struct {
	Domain         string
	Address        string
	URI            string
	Version        string
	ChainID        *int64
	Nonce          string
	IssuedAt       string
	ExpirationTime string
}

// ParseMessage extracts the SIWE fields from raw message text.
//
// The first line must carry the domain header and the second line the claimed
// address. Every later line is matched independently against the known labels,
// so ordering does not matter and unknown lines are skipped.
func ParseMessage(raw string) (*Message, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: expected domain and address lines", ErrMalformedMessage)
	}

	header := siweHeader.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if header == nil {
		return nil, fmt.Errorf("%w: missing sign-in header", ErrMalformedMessage)
	}

	msg := &Message{
		Domain:  strings.TrimSpace(header[1]),
		Address: strings.TrimSpace(lines[1]),
	}

	for _, line := range lines[2:] {
		switch {
		case strings.HasPrefix(line, "URI:"):
			msg.URI = labelValue(line, "URI:")
		case strings.HasPrefix(line, "Version:"):
			msg.Version = labelValue(line, "Version:")
		case strings.HasPrefix(line, "Chain ID:"):
			id, err := strconv.ParseInt(labelValue(line, "Chain ID:"), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: chain id: %v", ErrMalformedMessage, err)
			}
			msg.ChainID = &id
		case strings.HasPrefix(line, "Nonce:"):
			msg.Nonce = labelValue(line, "Nonce:")
		case strings.HasPrefix(line, "Issued At:"):
			msg.IssuedAt = labelValue(line, "Issued At:")
		case strings.HasPrefix(line, "Expiration Time:"):
			msg.ExpirationTime = labelValue(line, "Expiration Time:")
		}
	}

	return msg, nil
}

func labelValue(line, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, label))
}
