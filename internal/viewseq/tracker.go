// Package viewseq tracks the latest request issued per session and view so that
// slow fragment responses can be discarded once a newer one exists.
package viewseq

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultSize = 4096

// Token identifies one request for a view. Zero is never issued.
type Token uint64

// Tracker issues monotonically increasing tokens per (session, view).
// Keys beyond the configured size are evicted least recently used first.
type Tracker struct {
	mu   sync.Mutex
	seqs *lru.Cache[key, Token]
}

type key struct {
	session string
	view    string
}

// New returns a tracker remembering at most size keys.
func New(size int) (*Tracker, error) {
	if size <= 0 {
		size = defaultSize
	}
	cache, err := lru.New[key, Token](size)
	if err != nil {
		return nil, err
	}
	return &Tracker{seqs: cache}, nil
}

// Issue records a new request for the view and returns its token.
func (t *Tracker) Issue(session, view string) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key{session: session, view: view}
	next, _ := t.seqs.Get(k)
	next++
	t.seqs.Add(k, next)
	return next
}

// IsLatest reports whether token is still the newest one issued for the view.
// An evicted key reports true so the response is still delivered.
func (t *Tracker) IsLatest(session, view string, token Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.seqs.Peek(key{session: session, view: view})
	if !ok {
		return true
	}
	return current == token
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	return t.seqs.Len()
}
