// Package optimizer compiles keyword lists into compact regular expression
// alternations.
//
// Words are quoted, sorted and merged into a prefix trie, so that
// {faa, foo, foobar} becomes f(?:aa|oo(?:bar)?). The trie is flushed into
// chunks whenever a fragment would pass the configured length or subpattern
// ceiling; each chunk compiles on its own.
package optimizer

import (
	"slices"
	"strings"
)

const (
	// DefaultMaxLength bounds the length of one fragment.
	DefaultMaxLength = 32768
	// DefaultMaxSubpatterns bounds the number of groups in one fragment.
	DefaultMaxSubpatterns = 8192
)

// Options tunes the fragment ceilings. Zero values select the defaults.
type Options struct {
	MaxLength      int
	MaxSubpatterns int
	// SpaceAsWhitespace makes a space inside a word match any run of
	// whitespace.
	SpaceAsWhitespace bool
}

func (o Options) withDefaults() Options {
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxLength
	}
	if o.MaxSubpatterns <= 0 {
		o.MaxSubpatterns = DefaultMaxSubpatterns
	}
	return o
}

const metaChars = `.\+*?[^]$(){}=!<>|:-#/`

// Quote escapes every regex metacharacter in s.
func Quote(s string) string {
	return quote(s, false)
}

func quote(s string, spaceAsWhitespace bool) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch {
		case r < 0x80 && strings.IndexByte(metaChars, byte(r)) >= 0:
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == ' ' && spaceAsWhitespace:
			b.WriteString(whitespaceAtom)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Extend appends word to an existing fragment as one more alternative,
// quoted the way Optimize quotes it. It reports false, leaving fragment
// unchanged, when the result would pass MaxLength.
func Extend(fragment, word string, opts Options) (string, bool) {
	opts = opts.withDefaults()
	alt := quote(word, opts.SpaceAsWhitespace)
	if len(fragment)+1+len(alt) > opts.MaxLength {
		return fragment, false
	}
	return fragment + "|" + alt, true
}

// Optimize returns alternation fragments that together match exactly the
// given words and nothing else. Boundaries are the caller's concern: the
// fragments match words as substrings.
func Optimize(words []string, opts Options) []string {
	opts = opts.withDefaults()

	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		quoted = append(quoted, quote(w, opts.SpaceAsWhitespace))
	}
	slices.Sort(quoted)
	quoted = slices.Compact(quoted)

	b := &builder{opts: opts, root: &node{}}
	for _, w := range quoted {
		if b.size > opts.MaxLength {
			b.flush(true)
		}
		b.insert(w)
	}
	b.flush(false)
	return b.chunks()
}

// builder accumulates a trie and the rendered chunks.
type builder struct {
	opts Options
	root *node
	// prev is the key chain of the previously inserted word.
	prev []string
	size int

	done        []string
	cur         string
	subpatterns int
}

func (b *builder) insert(entry string) {
	n := b.root
	level := 0
	for {
		if level < len(b.prev) {
			key := b.prev[level]
			if key == entry {
				return
			}
			if c := commonPrefix(key, entry); c > 0 {
				if c == len(key) {
					n = n.child(key)
				} else {
					head, tail := key[:c], key[c:]
					if isMeta(head[0]) || isMeta(tail[0]) {
						n.add(entry, &node{terminal: true})
						b.prev = append(b.prev[:level], entry)
						b.size += len(entry)
						return
					}
					n = n.split(key, head, tail)
					b.prev = append(b.prev[:level], head, tail)
					b.size += len(tail)
				}
				level++
				entry = entry[c:]
				if entry == "" {
					n.terminal = true
					return
				}
				continue
			}
		}

		if level == 0 && !n.empty() {
			b.flush(false)
			n = b.root
		}
		n.add(entry, &node{terminal: true})
		b.prev = append(b.prev[:level], entry)
		b.size += len(entry)
		return
	}
}

// flush renders the current trie into the chunk list and resets the trie.
// With newChunk the rendered text always starts a new chunk.
func (b *builder) flush(newChunk bool) {
	if b.root.empty() {
		return
	}
	s := b.root.render()
	subs := strings.Count(s, "(?:")
	b.root = &node{}
	b.prev = b.prev[:0]
	b.size = 0

	switch {
	case b.cur == "":
	case newChunk,
		b.subpatterns+subs > b.opts.MaxSubpatterns,
		len(b.cur)+1+len(s) > b.opts.MaxLength:
		b.done = append(b.done, b.cur)
		b.cur, b.subpatterns = "", 0
	default:
		s = b.cur + "|" + s
	}
	b.cur = s
	b.subpatterns += subs
}

func (b *builder) chunks() []string {
	if b.cur != "" {
		b.done = append(b.done, b.cur)
		b.cur = ""
	}
	return b.done
}

func isMeta(c byte) bool {
	return strings.IndexByte(metaChars, c) >= 0
}
