// Package words provides the match vocabulary: the Italian dictionary
// file and the fetcher that translates picked words through the external
// vendor.
package words

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// Dictionary is the read-only list of Italian words loaded once at
// startup. Safe for concurrent use.
type Dictionary struct {
	words []string
}

// LoadDictionary reads one word per line from path, skipping blanks and
// duplicate lines. Pick's distinct-sample guarantee relies on the loaded
// list being duplicate free.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary %s: %w", path, err)
	}
	defer f.Close()

	var words []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" && !seen[word] {
			seen[word] = true
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary %s: %w", path, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("dictionary %s is empty", path)
	}

	return &Dictionary{words: words}, nil
}

// Len returns the number of words in the dictionary.
func (d *Dictionary) Len() int {
	return len(d.words)
}

// Pick returns n distinct random words. A word picked once is never
// picked again in the same call.
func (d *Dictionary) Pick(n int) ([]string, error) {
	if n > len(d.words) {
		return nil, fmt.Errorf("dictionary has %d words, need %d", len(d.words), n)
	}

	picked := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(picked) < n {
		w := d.words[rand.Intn(len(d.words))]
		if seen[w] {
			continue
		}
		seen[w] = true
		picked = append(picked, w)
	}
	return picked, nil
}
