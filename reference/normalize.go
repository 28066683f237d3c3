package reference

import "strings"

// Normalize splits raw into lines, strips the exchange-qualifier prefix and
// surrounding whitespace from each, and drops blank lines. No entry starts
// with prefix afterwards. Order is kept and duplicates are not removed.
func Normalize(raw, prefix string) []string {
	lines := strings.Split(raw, "\n")
	symbols := make([]string, 0, len(lines))
	for _, line := range lines {
		sym := strings.TrimSpace(line)
		for prefix != "" && strings.HasPrefix(sym, prefix) {
			sym = strings.TrimSpace(strings.TrimPrefix(sym, prefix))
		}
		if sym != "" {
			symbols = append(symbols, sym)
		}
	}
	return symbols
}
