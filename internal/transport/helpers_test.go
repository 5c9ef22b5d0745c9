package transport_test

import (
	"encoding/json"
	"strings"
)

// jsonDecode decodes like the transports do, leaving numbers as json.Number
func jsonDecode(s string, v interface{}) error {
	decoder := json.NewDecoder(strings.NewReader(s))
	decoder.UseNumber()
	return decoder.Decode(v)
}
