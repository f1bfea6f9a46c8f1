package projector

// Tab is the page a UI surface reports as active.
type Tab struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// Badge is the text and background color shown on the toolbar control.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Toolbar badges.
var (
	BadgeClear        = Badge{Text: "", Color: "#00000000"}
	BadgeDisconnected = Badge{Text: "!", Color: "#C61A1A"}
)

// MenuItem is one context-menu entry. Entries are produced parents first so
// they can be created in order.
type MenuItem struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parentId,omitempty"`
	Title    string   `json:"title"`
	Contexts []string `json:"contexts"`
}

// Toolbar is the browser action control.
type Toolbar interface {
	SetEnabled(tabID int, enabled bool) error
	DisableAll() error
	SetBadge(badge Badge) error
}

// Menu is the browser context menu.
type Menu interface {
	RemoveAll() error
	Create(item MenuItem) error
}

// Surface is somewhere the projected UI state is shown.
type Surface interface {
	Toolbar
	Menu
}
