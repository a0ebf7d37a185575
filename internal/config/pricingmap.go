package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalJSON decodes a JSON object into an ordered slice of entries,
// preserving the key order written in pricing.json.
func (m *PricingMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("modelPricing: expected JSON object, got %v", tok)
	}

	var entries []PricingMapEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("modelPricing: expected string key, got %v", keyTok)
		}

		var entry PricingEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("modelPricing[%s]: %w", key, err)
		}

		entries = append(entries, PricingMapEntry{Pattern: key, Entry: entry})
	}

	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}

	m.Entries = entries
	return nil
}

// MarshalJSON re-emits the entries in their original order.
func (m PricingMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(e.Pattern)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(e.Entry)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
