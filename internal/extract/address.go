package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"solana-mention-tracker/internal/solana"
)

// coinURLRe matches links of the form .../coin/<address>.
var coinURLRe = regexp.MustCompile(`(?i:https?://[^\s/]+(?:/[^\s/]+)*?/coin/)([1-9A-HJ-NP-Za-km-z]+)`)

// minChainStart is the shortest fragment that may begin a split address.
const minChainStart = 8

// run is a maximal sequence of address-alphabet characters.
type run struct {
	text  string
	start int // byte offset in the scanned text
	end   int
	// joinNext is set when only whitespace separates this run from the next one.
	joinNext bool
}

// addressMatch is a contract address plus the span it was read from.
type addressMatch struct {
	address string
	span    string
	pos     int
}

// scanRuns splits text into alphabet runs, recording which runs are whitespace-adjacent.
func scanRuns(text string) []run {
	var runs []run
	start := -1
	for i, r := range text {
		if solana.IsAlphabetChar(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, run{text: text[start:i], start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, run{text: text[start:], start: start, end: len(text)})
	}

	for i := 0; i+1 < len(runs); i++ {
		sep := text[runs[i].end:runs[i+1].start]
		runs[i].joinNext = sep != "" && strings.TrimFunc(sep, unicode.IsSpace) == ""
	}
	return runs
}

// findAddresses returns contract addresses found in text, in order of appearance.
// Handles addresses split across whitespace and addresses inside /coin/ links.
// Invalid reassemblies are dropped.
func findAddresses(text string) []addressMatch {
	var out []addressMatch
	consumed := make(map[int]bool) // run start offsets already used

	runs := scanRuns(text)
	runIndex := make(map[int]int, len(runs))
	for i, r := range runs {
		runIndex[r.start] = i
	}

	// Links first: the alphabet run right after /coin/ may carry trailing junk.
	for _, loc := range coinURLRe.FindAllStringSubmatchIndex(text, -1) {
		idx, ok := runIndex[loc[2]]
		if !ok {
			continue
		}
		if m, used, ok := reassemble(text, runs, idx, true); ok {
			out = append(out, m)
			for _, j := range used {
				consumed[runs[j].start] = true
			}
		}
	}

	for i := range runs {
		if consumed[runs[i].start] {
			continue
		}
		m, used, ok := reassemble(text, runs, i, false)
		if !ok {
			continue
		}
		out = append(out, m)
		for _, j := range used {
			consumed[runs[j].start] = true
		}
	}

	sortByPos(out)
	return out
}

// reassemble tries to read an address starting at runs[i].
// The run is joined with the whitespace-adjacent runs that follow it, keeping the longest
// valid whole-fragment prefix. A run that is a valid address on its own stands alone
// only when no longer join is valid.
// Inside links a run longer than the maximum is trimmed to its longest valid prefix.
func reassemble(text string, runs []run, i int, inLink bool) (addressMatch, []int, bool) {
	first := runs[i]

	if len(first.text) > solana.MaxAddressLen {
		if !inLink {
			return addressMatch{}, nil, false
		}
		if addr, ok := longestValidPrefix(first.text); ok {
			return addressMatch{address: addr, span: addr, pos: first.start}, []int{i}, true
		}
		return addressMatch{}, nil, false
	}

	// A run of address length may still be the head of a longer split address.
	standalone := len(first.text) >= solana.MinAddressLen && solana.IsValidAddress(first.text)
	if len(first.text) < solana.MinAddressLen && (len(first.text) < minChainStart || !looksLikeFragment(first.text)) {
		return addressMatch{}, nil, false
	}

	var (
		joined    = first.text
		bestLen   int
		bestCount int
	)
	for j := i; runs[j].joinNext && j+1 < len(runs); j++ {
		next := runs[j+1].text
		if len(joined)+len(next) > solana.MaxAddressLen {
			break
		}
		joined += next
		if len(joined) >= solana.MinAddressLen && solana.IsValidAddress(joined) {
			bestLen = len(joined)
			bestCount = j + 2 - i
		}
	}
	if bestLen == 0 {
		if standalone {
			return addressMatch{address: first.text, span: first.text, pos: first.start}, []int{i}, true
		}
		return addressMatch{}, nil, false
	}

	used := make([]int, 0, bestCount)
	for k := i; k < i+bestCount; k++ {
		used = append(used, k)
	}
	last := runs[i+bestCount-1]
	return addressMatch{
		address: joined[:bestLen],
		span:    text[first.start:last.end],
		pos:     first.start,
	}, used, true
}

// longestValidPrefix returns the longest prefix of s with a valid address length that decodes.
func longestValidPrefix(s string) (string, bool) {
	for n := solana.MaxAddressLen; n >= solana.MinAddressLen; n-- {
		if n > len(s) {
			continue
		}
		if solana.IsValidAddress(s[:n]) {
			return s[:n], true
		}
	}
	return "", false
}

// looksLikeFragment rejects plain words as split-address starts.
// A fragment needs a digit, or at least two upper and two lower case letters.
func looksLikeFragment(s string) bool {
	var upper, lower, digit int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digit++
		case r >= 'A' && r <= 'Z':
			upper++
		case r >= 'a' && r <= 'z':
			lower++
		}
	}
	return digit > 0 || (upper >= 2 && lower >= 2)
}

func sortByPos(ms []addressMatch) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].pos < ms[j].pos })
}
