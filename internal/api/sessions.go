package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/inkwell/internal/editor"
	"github.com/patrickmn/go-cache"
)

// maxPendingNotices bounds the notices kept for a session between polls.
const maxPendingNotices = 32

// hosted is an editor session held by the server.
type hosted struct {
	id    string
	title string
	sess  *editor.Session

	mu      sync.Mutex
	notices []editor.Notice
}

func (h *hosted) addNotice(n editor.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, n)
	if over := len(h.notices) - maxPendingNotices; over > 0 {
		h.notices = h.notices[over:]
	}
}

// drainNotices returns the notices since the last call.
func (h *hosted) drainNotices() []editor.Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.notices
	h.notices = nil
	if out == nil {
		out = []editor.Notice{}
	}
	return out
}

// registry keeps hosted sessions alive while they are in use. Idle
// sessions expire after the TTL and are closed.
type registry struct {
	c   *cache.Cache
	log *slog.Logger
}

func newRegistry(ttl time.Duration, log *slog.Logger) *registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cleanup := ttl / 2
	if cleanup > 5*time.Minute {
		cleanup = 5 * time.Minute
	}
	reg := &registry{c: cache.New(ttl, cleanup), log: log}
	reg.c.OnEvicted(func(id string, v any) {
		if h, ok := v.(*hosted); ok {
			h.sess.Close()
			log.Info("session closed", "session", id)
		}
	})
	return reg
}

func (r *registry) put(h *hosted) {
	r.c.Set(h.id, h, cache.DefaultExpiration)
}

// get returns the session and pushes its expiry back.
func (r *registry) get(id string) (*hosted, bool) {
	v, found := r.c.Get(id)
	if !found {
		return nil, false
	}
	h := v.(*hosted)
	r.c.Set(id, h, cache.DefaultExpiration)
	return h, true
}

func (r *registry) remove(id string) bool {
	if _, found := r.c.Get(id); !found {
		return false
	}
	r.c.Delete(id)
	return true
}

func (r *registry) count() int {
	return r.c.ItemCount()
}

func (r *registry) closeAll() {
	for id := range r.c.Items() {
		r.c.Delete(id)
	}
}
