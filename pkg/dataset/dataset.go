// Package dataset isolates the JSON blocks a store page or RPC response
// embeds and parses them with gjson.
package dataset

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sw33tLie/playscope/internal/utils"
	"github.com/tidwall/gjson"
)

// ScriptMarker identifies script blocks carrying a dataset.
const ScriptMarker = "AF_initDataCallback"

var ErrMalformed = errors.New("malformed response")

var (
	scriptRe = regexp.MustCompile(`AF_initDataCallback[\s\S]*?</script`)
	keyRe    = regexp.MustCompile(`(ds:.*?)'`)
	valueRe  = regexp.MustCompile(`data:([\s\S]*?), sideChannel: \{\}\}\);`)
	rpcRe    = regexp.MustCompile(`\)\]\}'\n\n([\s\S]+)`)
)

// Dataset maps a block label (ds:5) to its parsed JSON value.
type Dataset map[string]gjson.Result

// Key formats the label of dataset n.
func Key(n int) string {
	return fmt.Sprintf("ds:%d", n)
}

// Get returns the block labelled key.
func (d Dataset) Get(key string) (gjson.Result, bool) {
	r, ok := d[key]
	return r, ok
}

// Build extracts every labelled block from an HTML page. Blocks without a
// label, without a literal, or whose literal is not valid JSON are skipped.
// A label seen twice keeps the last block.
func Build(body string) Dataset {
	ds := make(Dataset)
	for _, block := range ScriptBlocks(body) {
		keyMatch := keyRe.FindStringSubmatch(block)
		valueMatch := valueRe.FindStringSubmatch(block)
		if keyMatch == nil || valueMatch == nil {
			continue
		}

		literal := strings.TrimSpace(valueMatch[1])
		if !gjson.Valid(literal) {
			utils.Log.Debugf("Skipping %s: data literal is not valid JSON", keyMatch[1])
			continue
		}
		ds[keyMatch[1]] = gjson.Parse(literal)
	}
	return ds
}

// ScriptBlocks returns the text of every script element containing
// ScriptMarker. If the page cannot be parsed as HTML it falls back to a
// plain text scan.
func ScriptBlocks(body string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		utils.Log.Debugf("Failed to parse HTML, scanning raw text: %v", err)
		return scriptRe.FindAllString(body, -1)
	}

	var blocks []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if strings.Contains(text, ScriptMarker) {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

// UnwrapRPC decodes a batchexecute response: it strips the )]}' guard and
// returns the payload carried as a JSON string at [0][2] of the envelope.
func UnwrapRPC(body string) (gjson.Result, error) {
	m := rpcRe.FindStringSubmatch(body)
	if m == nil {
		return gjson.Result{}, fmt.Errorf("%w: missing RPC guard prefix", ErrMalformed)
	}

	envelope := strings.TrimSpace(m[1])
	if !gjson.Valid(envelope) {
		// Responses sometimes carry several length-prefixed chunks; the
		// first line holds the envelope we need.
		envelope = strings.TrimSpace(strings.SplitN(envelope, "\n", 2)[0])
		if !gjson.Valid(envelope) {
			return gjson.Result{}, fmt.Errorf("%w: RPC envelope is not valid JSON", ErrMalformed)
		}
	}

	inner := gjson.Parse(envelope).Get("0.2")
	if inner.Type != gjson.String {
		return gjson.Result{}, fmt.Errorf("%w: RPC envelope carries no payload", ErrMalformed)
	}
	if !gjson.Valid(inner.Str) {
		return gjson.Result{}, fmt.Errorf("%w: RPC payload is not valid JSON", ErrMalformed)
	}
	return gjson.Parse(inner.Str), nil
}
