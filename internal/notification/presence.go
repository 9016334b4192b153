package notification

import "sync"

// Presence holds the latest Environment reported by the shell.
type Presence struct {
	mu  sync.RWMutex
	env Environment
}

// NewPresence creates a Presence starting from env.
func NewPresence(env Environment) *Presence {
	return &Presence{env: env}
}

// Environment returns the current snapshot.
func (p *Presence) Environment() Environment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.env
}

// Update applies fn to the stored environment and returns the result.
func (p *Presence) Update(fn func(*Environment)) Environment {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.env)
	return p.env
}

// SetForeground records whether the app has input focus.
func (p *Presence) SetForeground(foreground bool) Environment {
	return p.Update(func(e *Environment) { e.Foreground = foreground })
}

// SetPermission records the notification permission.
func (p *Presence) SetPermission(perm PermissionState) Environment {
	return p.Update(func(e *Environment) { e.Permission = perm })
}
