package corpus

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/pagerank/internal/rank"
)

// Fingerprint returns a SHA3-256 digest of the link structure of g, as a hex
// string. Two graphs with the same pages and links have the same fingerprint
// regardless of how they were loaded, so stored runs can tell whether a
// corpus changed between them.
func Fingerprint(g *rank.Graph) string {
	var b strings.Builder
	for _, page := range g.Pages() {
		b.WriteString(string(page))
		b.WriteByte('\n')
		for _, target := range g.Links(page) {
			b.WriteByte('\t')
			b.WriteString(string(target))
			b.WriteByte('\n')
		}
	}
	sum := sha3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
