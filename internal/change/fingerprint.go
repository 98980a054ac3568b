// Package change fingerprints records and diffs them field by field.
package change

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

// fingerprintDescriptionRunes is how much of the description feeds the fingerprint.
const fingerprintDescriptionRunes = 100

// Fingerprint hashes the title, price, stock flag, and the first 100 characters
// of the description. Equal fingerprints skip the full field comparison.
func Fingerprint(r *domain.Record) string {
	desc := []rune(r.Description)
	if len(desc) > fingerprintDescriptionRunes {
		desc = desc[:fingerprintDescriptionRunes]
	}

	content := strings.Join([]string{
		r.Title,
		strconv.FormatFloat(r.Price, 'f', -1, 64),
		strconv.FormatBool(r.InStock),
		string(desc),
	}, "|")

	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
