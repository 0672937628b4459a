package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Fingerprint computes the cache key for a normalized request. It is a
// pure function of (provider, model, request) content: logically
// identical requests hash identically regardless of map key ordering.
func Fingerprint(provider, model string, request map[string]any) string {
	var b strings.Builder
	b.WriteString(provider)
	b.WriteByte('\x00')
	b.WriteString(model)
	b.WriteByte('\x00')
	writeCanonical(&b, request)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// writeCanonical serializes a value deterministically: object keys are
// sorted, scalars are printed in a fixed form.
func writeCanonical(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, val[k])
		}
		b.WriteByte('}')

	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')

	case string:
		b.WriteString(strconv.Quote(val))

	case bool:
		b.WriteString(strconv.FormatBool(val))

	case float64:
		// JSON numbers decode to float64; integral values print
		// without a fraction so 3 and 3.0 fingerprint identically.
		if val == float64(int64(val)) {
			b.WriteString(strconv.FormatInt(int64(val), 10))
		} else {
			b.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
		}

	case int:
		b.WriteString(strconv.Itoa(val))

	case int64:
		b.WriteString(strconv.FormatInt(val, 10))

	default:
		fmt.Fprintf(b, "%v", val)
	}
}
