package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BitwardenParser reads unencrypted Bitwarden JSON exports.
type BitwardenParser struct{}

// Bitwarden item types.
const (
	bitwardenTypeLogin      = 1
	bitwardenTypeSecureNote = 2
	bitwardenTypeCard       = 3
	bitwardenTypeIdentity   = 4
)

type bitwardenExport struct {
	Encrypted bool            `json:"encrypted"`
	Items     []bitwardenItem `json:"items"`
}

type bitwardenItem struct {
	Type  int             `json:"type"`
	Name  string          `json:"name"`
	Login *bitwardenLogin `json:"login"`
}

type bitwardenLogin struct {
	URIs     []bitwardenURI `json:"uris"`
	Username string         `json:"username"`
	Password string         `json:"password"`
}

type bitwardenURI struct {
	URI string `json:"uri"`
}

// Source returns SourceBitwarden.
func (p *BitwardenParser) Source() Source { return SourceBitwarden }

// Parse reads a Bitwarden JSON export.
func (p *BitwardenParser) Parse(data []byte) (*Result, error) {
	var export bitwardenExport
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &export); err != nil {
		return nil, fmt.Errorf("%w: failed to parse Bitwarden JSON: %w", ErrInvalidExport, err)
	}
	if export.Encrypted {
		return nil, fmt.Errorf("%w: encrypted Bitwarden exports are not supported", ErrInvalidExport)
	}

	b := newBuilder()
	for i, item := range export.Items {
		location := fmt.Sprintf("item %d", i+1)
		switch item.Type {
		case bitwardenTypeLogin:
			if item.Login == nil {
				b.skip(item.Name, "no login data")
				continue
			}
			var uri string
			if len(item.Login.URIs) > 0 {
				uri = item.Login.URIs[0].URI
			}
			b.add(location, item.Name, item.Login.Username, uri, item.Login.Password)
		case bitwardenTypeSecureNote:
			b.skip(item.Name, "secure note")
		case bitwardenTypeCard:
			b.skip(item.Name, "card")
		case bitwardenTypeIdentity:
			b.skip(item.Name, "identity")
		default:
			b.warn("%s (%s): unknown item type %d", location, item.Name, item.Type)
		}
	}
	return b.result, nil
}
