package catalog

import (
	"context"
	"log"
	"strings"
	"unicode"

	"bookhub/pkg/models"
)

// Entry is the transport-independent shape of one remote catalog book.
type Entry struct {
	Title   string   `json:"title"`
	Year    *int     `json:"year"`
	ISBN    *string  `json:"isbn"`
	Authors []string `json:"authors"`
	Sources []string `json:"sources"`
}

// Source is implemented by each remote catalog (a peer API, a static
// mirror file). Each source fetches its own format and maps it into
// Entry values.
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]Entry, error)
}

// Aggregator coordinates calls to multiple sources and merges their
// entries into one canonical set.
type Aggregator struct {
	Sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{Sources: sources}
}

// FetchAndMerge fetches every source and merges the results using
// deterministic conflict rules. A broken source is logged and skipped,
// not fatal.
func (a *Aggregator) FetchAndMerge(ctx context.Context) ([]Entry, error) {
	byKey := make(map[string]Entry)
	var order []string

	for _, src := range a.Sources {
		log.Printf("[catalog] fetching from %s", src.Name())
		entries, err := src.FetchAll(ctx)
		if err != nil {
			log.Printf("[catalog] source %s error: %v", src.Name(), err)
			continue
		}

		for _, e := range entries {
			if strings.TrimSpace(e.Title) == "" {
				continue
			}
			e.Sources = appendIfMissing(e.Sources, src.Name())

			key := entryKey(e)
			if existing, ok := byKey[key]; ok {
				byKey[key] = mergeEntry(existing, e)
			} else {
				byKey[key] = e
				order = append(order, key)
			}
		}
	}

	result := make([]Entry, 0, len(byKey))
	for _, key := range order {
		result = append(result, byKey[key])
	}
	return result, nil
}

// entryKey groups entries that describe the same book: the ISBN when
// one is present, otherwise a normalized title.
func entryKey(e Entry) string {
	if e.ISBN != nil && strings.TrimSpace(*e.ISBN) != "" {
		return "isbn:" + strings.TrimSpace(*e.ISBN)
	}
	return "title:" + normalizeKey(e.Title)
}

// normalizeKey lowercases, strips punctuation and compresses spaces.
func normalizeKey(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// mergeEntry resolves a conflict between two entries for the same book:
// first-seen title wins, missing year/isbn fill from incoming, authors
// and sources are set unions.
func mergeEntry(base, incoming Entry) Entry {
	if base.Year == nil && incoming.Year != nil {
		base.Year = incoming.Year
	}
	if base.ISBN == nil && incoming.ISBN != nil {
		base.ISBN = incoming.ISBN
	}
	for _, name := range incoming.Authors {
		base.Authors = appendIfMissing(base.Authors, name)
	}
	for _, src := range incoming.Sources {
		base.Sources = appendIfMissing(base.Sources, src)
	}
	return base
}

// entryFromBook maps an API book payload into a catalog entry.
func entryFromBook(b models.Book) Entry {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = appendIfMissing(names, a.Name)
	}
	return Entry{
		Title:   b.Title,
		Year:    b.Year,
		ISBN:    b.ISBN,
		Authors: names,
	}
}

func appendIfMissing(slice []string, v string) []string {
	for _, x := range slice {
		if x == v {
			return slice
		}
	}
	return append(slice, v)
}
