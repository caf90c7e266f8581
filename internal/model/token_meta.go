package model

import "strings"

// TokenMeta captures ERC20 metadata used as defaults for new Token records.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// Sanitized returns m with NUL bytes and invalid UTF-8 removed from the
// symbol and name. Contracts return arbitrary bytes there, and text columns
// reject both.
func (m TokenMeta) Sanitized() TokenMeta {
	m.Symbol = cleanText(m.Symbol)
	m.Name = cleanText(m.Name)
	return m
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(strings.ReplaceAll(s, "\x00", ""), ""))
}
