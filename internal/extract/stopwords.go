package extract

import "strings"

// DefaultStopwords are words that never name a token when they precede "coin".
var DefaultStopwords = []string{
	// articles and determiners
	"a", "an", "the", "this", "that", "these", "those", "any", "some", "every", "each",
	"another", "other", "same", "which", "what", "one", "no",
	// possessives
	"my", "your", "his", "her", "its", "our", "their",
	// generic adjectives
	"real", "crazy", "mega", "new", "next", "best", "big", "good", "great", "top", "hot",
	"first", "last", "only", "meme", "shit", "based", "fav", "favorite",
}

func stopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}
