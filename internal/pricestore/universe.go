package pricestore

import (
	"bufio"
	"os"
	"strings"

	"github.com/finbolt/ghb/internal/core"
)

// LoadUniverse reads a ticker list file: one symbol per line, blank lines
// and #-comments ignored. Symbols are upper-cased and de-duplicated,
// preserving first-seen order.
func LoadUniverse(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer f.Close()

	seen := make(map[string]bool)
	var tickers []string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ticker := strings.ToUpper(line)
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		tickers = append(tickers, ticker)
	}
	if err := sc.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return tickers, nil
}
