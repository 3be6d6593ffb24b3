package router

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxRedirects = 5

// NavigationHook runs before every navigation with the current and target
// paths.
type NavigationHook func(from, to string)

// History tracks the current location. Push goes through the guard,
// Replace does not.
type History struct {
	mu      sync.Mutex
	current Location
	guard   *Guard
	hooks   []NavigationHook
}

func NewHistory(guard *Guard, start string) *History {
	return &History{guard: guard, current: ParseLocation(start)}
}

func (h *History) OnNavigate(hook NavigationHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

func (h *History) Current() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *History) CurrentPath() string {
	return h.Current().Path
}

// Push navigates to target, following guard redirects.
func (h *History) Push(target string) (Location, error) {
	loc := ParseLocation(target)
	loc.Path = Resolve(loc.Path)
	for i := 0; i <= maxRedirects; i++ {
		h.runHooks(loc.Path)
		if h.guard == nil {
			h.set(loc)
			return loc, nil
		}
		decision := h.guard.Check(loc.Path)
		if decision.Allowed() {
			h.set(loc)
			return loc, nil
		}
		log.Debug().Str("from", loc.String()).Str("to", decision.Redirect.String()).Msg("navigation redirected")
		loc = *decision.Redirect
	}
	return h.Current(), errors.Errorf("[History.Push] too many redirects navigating to %s", target)
}

// Replace moves to target immediately.
func (h *History) Replace(target string) {
	loc := ParseLocation(target)
	h.runHooks(loc.Path)
	h.set(loc)
}

func (h *History) set(loc Location) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = loc
}

func (h *History) runHooks(to string) {
	h.mu.Lock()
	from := h.current.Path
	hooks := append([]NavigationHook(nil), h.hooks...)
	h.mu.Unlock()
	for _, hook := range hooks {
		hook(from, to)
	}
}
