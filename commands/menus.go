package commands

import (
	"cmp"
	"slices"
	"strings"
	"sync"
)

// MenuPath addresses a menu group, e.g. {"navigator-context-menu", "1_new"}
type MenuPath []string

func (p MenuPath) String() string {
	return strings.Join(p, "/")
}

// Well-known menu paths
var (
	NavigatorContextMenu = MenuPath{"navigator-context-menu"}
	MainMenuFile         = MenuPath{"menubar", "file"}
)

// Group returns the sub path for a group below p
func (p MenuPath) Group(name string) MenuPath {
	return append(slices.Clone(p), name)
}

type MenuAction struct {
	CommandID string
	// Label overrides the command's label when set
	Label string
	Order string
}

// MenuRegistry keeps menu actions per path. It is safe for concurrent use
type MenuRegistry struct {
	mu    sync.RWMutex
	menus map[string][]MenuAction
}

func NewMenuRegistry() *MenuRegistry {
	return &MenuRegistry{menus: map[string][]MenuAction{}}
}

// RegisterMenuAction adds action at path. Call the returned func to remove it
func (m *MenuRegistry) RegisterMenuAction(path MenuPath, action MenuAction) (dispose func()) {
	key := path.String()
	m.mu.Lock()
	m.menus[key] = append(m.menus[key], action)
	m.mu.Unlock()
	return func() { m.UnregisterMenuAction(path, action.CommandID) }
}

// UnregisterMenuAction removes every action for commandID at path
func (m *MenuRegistry) UnregisterMenuAction(path MenuPath, commandID string) {
	key := path.String()
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := slices.DeleteFunc(m.menus[key], func(a MenuAction) bool { return a.CommandID == commandID })
	if len(actions) == 0 {
		delete(m.menus, key)
		return
	}
	m.menus[key] = actions
}

// Items returns the actions at path ordered by Order, then label, then command ID
func (m *MenuRegistry) Items(path MenuPath) []MenuAction {
	m.mu.RLock()
	items := slices.Clone(m.menus[path.String()])
	m.mu.RUnlock()
	slices.SortStableFunc(items, compareActions)
	return items
}

func compareActions(a, b MenuAction) int {
	return cmp.Or(
		strings.Compare(a.Order, b.Order),
		strings.Compare(a.Label, b.Label),
		strings.Compare(a.CommandID, b.CommandID),
	)
}

// Walk visits every path in lexical order and its items in display order.
// Returning false stops the walk
func (m *MenuRegistry) Walk(fn func(path MenuPath, action MenuAction) bool) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.menus))
	for k := range m.menus {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	slices.Sort(keys)

	for _, k := range keys {
		path := MenuPath(strings.Split(k, "/"))
		for _, action := range m.Items(path) {
			if !fn(path, action) {
				return
			}
		}
	}
}

// Contribution registers commands and menu entries into the registries
type Contribution interface {
	RegisterCommands(r *Registry) error
	RegisterMenus(m *MenuRegistry)
}

// Contribute installs every contribution, stopping at the first error
func Contribute(r *Registry, m *MenuRegistry, contribs ...Contribution) error {
	for _, c := range contribs {
		if err := c.RegisterCommands(r); err != nil {
			return err
		}
		c.RegisterMenus(m)
	}
	return nil
}
