// Package tray provides system tray functionality using getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID        int
	Title     string
	Callback  func()
	Checkable bool
	Checked   bool
	Parent    int // -1 for top level
	submenu   bool
	item      *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	mu      sync.Mutex
	items   []*MenuItem
	title   string
	tooltip string
	running bool
	ready   bool
	quitCh  chan struct{}
	onReady func()
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// OnReady runs fn once the menu exists.
func (t *Tray) OnReady(fn func()) {
	t.onReady = fn
}

// AddMenuItem adds a menu item to the tray
func (t *Tray) AddMenuItem(title string, callback func()) int {
	return t.add(&MenuItem{Title: title, Callback: callback, Parent: -1})
}

// AddCheckbox adds a checkable item to the tray
func (t *Tray) AddCheckbox(title string, checked bool, callback func()) int {
	return t.add(&MenuItem{Title: title, Callback: callback, Checkable: true, Checked: checked, Parent: -1})
}

// AddSubMenu adds an item that only holds children
func (t *Tray) AddSubMenu(title string) int {
	return t.add(&MenuItem{Title: title, Parent: -1, submenu: true})
}

// AddSubMenuCheckbox adds a checkable child to a submenu
func (t *Tray) AddSubMenuCheckbox(parent int, title string, checked bool, callback func()) int {
	return t.add(&MenuItem{Title: title, Callback: callback, Checkable: true, Checked: checked, Parent: parent})
}

// AddSubMenuItem adds a child to a submenu
func (t *Tray) AddSubMenuItem(parent int, title string, callback func()) int {
	return t.add(&MenuItem{Title: title, Callback: callback, Parent: parent})
}

func (t *Tray) add(mi *MenuItem) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi.ID = len(t.items)
	t.items = append(t.items, mi)
	return mi.ID
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

// Item returns the item with the given id, or nil.
func (t *Tray) Item(id int) *MenuItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.items) {
		return nil
	}
	return t.items[id]
}

// SetItemChecked sets the checked state of a menu item
func (t *Tray) SetItemChecked(id int, checked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.items) || t.items[id] == nil {
		return
	}
	mi := t.items[id]
	if mi.Checked == checked {
		return
	}
	mi.Checked = checked
	if mi.item == nil {
		return
	}
	if checked {
		mi.item.Check()
	} else {
		mi.item.Uncheck()
	}
}

// SetItemTitle renames a menu item
func (t *Tray) SetItemTitle(id int, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.items) || t.items[id] == nil {
		return
	}
	mi := t.items[id]
	if mi.Title == title {
		return
	}
	mi.Title = title
	if mi.item != nil {
		mi.item.SetTitle(title)
	}
}

// SetStatus updates the tooltip and switches the icon between running and stopped.
func (t *Tray) SetStatus(tooltip string, running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := t.running != running
	t.tooltip, t.running = tooltip, running
	if !t.ready {
		return
	}
	systray.SetTooltip(tooltip)
	if changed {
		systray.SetIcon(Icon(running))
	}
}

// Status returns the current tooltip and running flag.
func (t *Tray) Status() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tooltip, t.running
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() {
		close(t.quitCh)
	})
}

// Done is closed when the tray loop exits.
func (t *Tray) Done() <-chan struct{} {
	return t.quitCh
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.mu.Lock()
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(Icon(t.running))

	// Create menu items
	for _, mi := range t.items {
		if mi == nil {
			systray.AddSeparator()
			continue
		}
		mi.item = t.create(mi)
		if mi.submenu || mi.Callback == nil {
			continue
		}
		// Handle clicks in goroutine
		go func(mi *MenuItem, ch chan struct{}) {
			for {
				select {
				case <-ch:
					mi.Callback()
				case <-t.quitCh:
					return
				}
			}
		}(mi, mi.item.ClickedCh)
	}
	t.ready = true
	onReady := t.onReady
	t.mu.Unlock()

	if onReady != nil {
		onReady()
	}
}

func (t *Tray) create(mi *MenuItem) *systray.MenuItem {
	var parent *systray.MenuItem
	if mi.Parent >= 0 && mi.Parent < len(t.items) && t.items[mi.Parent] != nil {
		parent = t.items[mi.Parent].item
	}

	var item *systray.MenuItem
	switch {
	case parent != nil && mi.Checkable:
		item = parent.AddSubMenuItemCheckbox(mi.Title, "", mi.Checked)
	case parent != nil:
		item = parent.AddSubMenuItem(mi.Title, "")
	case mi.Checkable:
		item = systray.AddMenuItemCheckbox(mi.Title, "", mi.Checked)
	default:
		item = systray.AddMenuItem(mi.Title, "")
	}
	return item
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}
