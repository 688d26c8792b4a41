package rpcserver

import (
	"sort"
	"sync"
	"time"

	"github.com/harun/apigate/internal/observability"
)

// A session with no frames for this long is reported idle by clients.list.
const idleAfter = 5 * time.Minute

// ClientRegistry owns the websocket sessions and every change to their
// authentication state. The apigate_rpc_connections gauge follows its size.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewClientRegistry returns an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]*Client)}
}

// Add tracks a freshly upgraded session.
func (r *ClientRegistry) Add(c *Client) {
	r.mu.Lock()
	r.clients[c.ID] = c
	n := len(r.clients)
	r.mu.Unlock()

	observability.SetRPCConnections(n)
}

// Remove forgets a session and reports whether it was tracked. Removing
// twice is harmless.
func (r *ClientRegistry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.clients[id]
	delete(r.clients, id)
	n := len(r.clients)
	r.mu.Unlock()

	if ok {
		observability.SetRPCConnections(n)
	}
	return ok
}

// Len is the number of tracked sessions.
func (r *ClientRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Touch records inbound activity on a session.
func (r *ClientRegistry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.LastActivity = time.Now()
	}
}

// Challenge stores the challenge a session must sign next.
func (r *ClientRegistry) Challenge(c *Client, challenge string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Challenge = challenge
	c.State = StateAuthenticating
}

// Authenticate checks a signed challenge and returns the outcome together
// with the session's failed attempt count.
func (r *ClientRegistry) Authenticate(auth *AuthHandler, c *Client, signature string) (AuthResult, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := auth.HandleAuthResponse(c, signature)
	return result, c.AuthAttempts
}

// IsAuthenticated reports whether the session may issue calls.
func (r *ClientRegistry) IsAuthenticated(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return c.Authenticated
}

// Sessions returns every tracked session, authenticated or not.
func (r *ClientRegistry) Sessions() []*Client {
	return r.filter(func(*Client) bool { return true })
}

// Listeners returns the sessions that receive broadcast events.
func (r *ClientRegistry) Listeners() []*Client {
	return r.filter(func(c *Client) bool { return c.Authenticated })
}

func (r *ClientRegistry) filter(keep func(*Client) bool) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Snapshot describes every session, oldest connection first.
func (r *ClientRegistry) Snapshot() []ClientInfo {
	r.mu.RLock()
	now := time.Now()
	infos := make([]ClientInfo, 0, len(r.clients))
	for _, c := range r.clients {
		infos = append(infos, ClientInfo{
			ID:            c.ID,
			Authenticated: c.Authenticated,
			ConnectedAt:   c.ConnectedAt,
			LastActivity:  c.LastActivity,
			IPAddress:     c.IPAddress,
			Idle:          now.Sub(c.LastActivity) > idleAfter,
		})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].ConnectedAt.Equal(infos[j].ConnectedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}
