package storage

import (
	"fmt"
)

// fingerprint identifies the parts of a review whose change is worth
// logging. Thumbs-up counts move constantly and are left out.
func fingerprint(score int, content, reply string) string {
	return fmt.Sprintf("%d|%s|%s", score, content, reply)
}
