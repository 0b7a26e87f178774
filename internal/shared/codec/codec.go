// Package codec is the JSON codec shared by storage and transport.
//
// It uses sonic in its encoding/json compatible configuration, so output is
// byte-for-byte what encoding/json would produce (sorted map keys, HTML
// escaping) and stored documents stay stable across rewrites.
package codec

import "github.com/bytedance/sonic"

var api = sonic.ConfigStd

// Marshal encodes v as JSON
func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal decodes JSON data into v
func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}

// Valid reports whether data is a well-formed JSON document
func Valid(data []byte) bool {
	return api.Valid(data)
}
