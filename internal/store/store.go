// ABOUTME: Store interfaces and data types for widget-sidebar persistence
// ABOUTME: Defines Category, Item, panel/history/browser records and typed patch structs

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateList is returned when a list name already exists in the category.
var ErrDuplicateList = errors.New("list name already exists in category")

// ErrEmptyList is returned when creating or replacing a list with no items.
var ErrEmptyList = errors.New("list must have at least one item")

// ErrNotListItem is returned when a list operation targets an item
// that is not part of a list group.
var ErrNotListItem = errors.New("item is not part of a list")

// ErrInvalidPosition is returned when a reposition target lies outside 1..N.
var ErrInvalidPosition = errors.New("list position out of range")

// ErrDuplicateProfile is returned when a browser profile name is taken.
var ErrDuplicateProfile = errors.New("profile name already exists")

// ErrDefaultProfile is returned when deleting the default browser profile.
var ErrDefaultProfile = errors.New("cannot delete default profile")

// Item type constants.
const (
	ItemTypeText = "text" // Plain text snippet
	ItemTypeURL  = "url"  // Web address
	ItemTypeCode = "code" // Command or code block
	ItemTypePath = "path" // Filesystem path
)

// Category is a top-level group of items, manually ordered in the sidebar.
type Category struct {
	ID           string
	Name         string
	Icon         string
	OrderIndex   int
	IsActive     bool
	IsPredefined bool
	Color        string
	Badge        string
	AccessCount  int
	LastAccessed *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CategoryPatch updates individual category fields. Nil fields are left
// unchanged; the set of fields here is the complete mutable surface.
type CategoryPatch struct {
	Name       *string
	Icon       *string
	OrderIndex *int
	IsActive   *bool
	Color      *string
	Badge      *string
}

// Item is a single piece of user-curated content inside a category.
//
// Content is stored encrypted when IsSensitive is set and is always
// plaintext (or DecryptFailedPlaceholder) by the time a caller sees it.
// ListGroup/ListPosition are meaningful only when IsList is true; they
// are managed by the list operations, not by UpdateItem.
type Item struct {
	ID            string
	CategoryID    string
	Label         string
	Content       string
	Type          string // text, url, code, path
	Icon          string
	IsSensitive   bool
	IsFavorite    bool
	FavoriteOrder int
	UseCount      int
	Tags          []string
	Description   string
	WorkingDir    string
	Color         string
	Badge         string
	IsActive      bool
	IsArchived    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastUsed      *time.Time

	IsList       bool
	ListGroup    *string
	ListPosition int // 1-based rank within the list group

	// Populated on joined queries only.
	CategoryName  string
	CategoryIcon  string
	CategoryColor string
}

// ItemPatch updates individual item fields. Nil fields are left
// unchanged. List membership (IsList/ListGroup/ListPosition) is
// deliberately absent: it is owned by the list operations so the
// contiguous-ordering invariant cannot be bypassed.
type ItemPatch struct {
	Label         *string
	Content       *string
	Type          *string
	Icon          *string
	IsSensitive   *bool
	IsFavorite    *bool
	FavoriteOrder *int
	Tags          *[]string
	Description   *string
	WorkingDir    *string
	Color         *string
	Badge         *string
	IsActive      *bool
	IsArchived    *bool
}

// ItemSpec describes one item of a list being created or replaced.
type ItemSpec struct {
	Label       string
	Content     string
	Type        string
	Icon        string
	IsSensitive bool
	Tags        []string
	Description string
	WorkingDir  string
	Color       string
}

// ListSummary describes one list group within a category.
type ListSummary struct {
	ListGroup  string
	ItemCount  int
	FirstLabel string
	CreatedAt  time.Time
	LastUsed   *time.Time
}

// ClipboardEntry is one row of bounded clipboard history. ItemID is nil
// for ad-hoc copies and survives item deletion via ON DELETE SET NULL.
type ClipboardEntry struct {
	ID       string
	ItemID   *string
	Content  string
	CopiedAt time.Time

	// Populated from the originating item when it still exists.
	ItemLabel string
	ItemType  string
}

// PinnedPanel is a saved, positioned view of one category's items.
type PinnedPanel struct {
	ID               string
	CategoryID       string
	CustomName       *string
	CustomColor      *string
	X                int
	Y                int
	Width            int
	Height           int
	IsMinimized      bool
	FilterConfig     *string
	KeyboardShortcut *string
	CreatedAt        time.Time
	LastOpened       time.Time
	OpenCount        int
	IsActive         bool

	// Populated on joined queries only.
	CategoryName string
	CategoryIcon string
}

// PanelPatch updates individual pinned panel fields.
type PanelPatch struct {
	X                *int
	Y                *int
	Width            *int
	Height           *int
	IsMinimized      *bool
	CustomName       *string
	CustomColor      *string
	FilterConfig     *string
	KeyboardShortcut *string
	IsActive         *bool
}

// Bookmark is a saved browser bookmark.
type Bookmark struct {
	ID         string
	Title      string
	URL        string
	Folder     *string
	Icon       *string
	CreatedAt  time.Time
	OrderIndex int
}

// BookmarkPatch updates individual bookmark fields.
type BookmarkPatch struct {
	Title  *string
	URL    *string
	Folder *string
}

// SpeedDial is a quick-access tile on the browser start page.
// Positions are kept compact (0..N-1) across deletes and moves.
type SpeedDial struct {
	ID              string
	Title           string
	URL             string
	Icon            string
	BackgroundColor string
	ThumbnailPath   *string
	Position        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SpeedDialPatch updates individual speed dial fields.
type SpeedDialPatch struct {
	Title           *string
	URL             *string
	Icon            *string
	BackgroundColor *string
	ThumbnailPath   *string
}

// BrowserSession is a saved set of browser tabs. At most one auto-save
// session exists at a time; saving a new one replaces the previous.
type BrowserSession struct {
	ID         string
	Name       string
	IsAutoSave bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	TabCount   int
}

// SessionTab is one tab within a saved browser session.
type SessionTab struct {
	ID        string
	SessionID string
	URL       string
	Title     string
	Position  int
	IsActive  bool
}

// BrowserConfig is the singleton embedded-browser window state. It
// lives in the settings table under one key rather than its own table.
type BrowserConfig struct {
	HomeURL   string `json:"home_url"`
	IsVisible bool   `json:"is_visible"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// BrowserProfile is an isolated browser storage profile.
type BrowserProfile struct {
	ID          string
	Name        string
	StoragePath string
	IsDefault   bool
	CreatedAt   time.Time
	LastUsed    *time.Time
}

// CategoryStore defines category persistence.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context, includeInactive bool) ([]*Category, error)
	UpdateCategory(ctx context.Context, id string, patch CategoryPatch) error
	DeleteCategory(ctx context.Context, id string) error
	ReorderCategories(ctx context.Context, ids []string) error
	TouchCategory(ctx context.Context, id string) error
}

// ItemStore defines plain item persistence.
type ItemStore interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id string) (*Item, error)
	ItemsByCategory(ctx context.Context, categoryID string) ([]*Item, error)
	AllItems(ctx context.Context, includeInactive bool) ([]*Item, error)
	SearchItems(ctx context.Context, query string, limit int) ([]*Item, error)
	UpdateItem(ctx context.Context, id string, patch ItemPatch) error
	DeleteItem(ctx context.Context, id string) error
	TouchItem(ctx context.Context, id string) error
}

// ListStore defines the ordered list-group operations.
type ListStore interface {
	CreateList(ctx context.Context, categoryID, name string, specs []ItemSpec) ([]string, error)
	ListItems(ctx context.Context, categoryID, listGroup string) ([]*Item, error)
	ListGroups(ctx context.Context, categoryID string) ([]*ListSummary, error)
	ReorderListItem(ctx context.Context, itemID string, newPosition int) error
	UpdateList(ctx context.Context, categoryID, oldName, newName string, specs []ItemSpec) error
	DeleteList(ctx context.Context, categoryID, listGroup string) error
	IsListNameUnique(ctx context.Context, categoryID, name, exclude string) (bool, error)
}

// HistoryStore defines bounded clipboard history persistence.
type HistoryStore interface {
	AddHistory(ctx context.Context, itemID *string, content string) (string, error)
	History(ctx context.Context, limit int) ([]*ClipboardEntry, error)
	TrimHistory(ctx context.Context, keepLatest int) error
	ClearHistory(ctx context.Context) error
}

// PanelStore defines pinned panel persistence.
type PanelStore interface {
	SavePanel(ctx context.Context, p *PinnedPanel) error
	GetPanel(ctx context.Context, id string) (*PinnedPanel, error)
	Panels(ctx context.Context, activeOnly bool) ([]*PinnedPanel, error)
	PanelByCategory(ctx context.Context, categoryID string) (*PinnedPanel, error)
	RecentPanels(ctx context.Context, limit int) ([]*PinnedPanel, error)
	UpdatePanel(ctx context.Context, id string, patch PanelPatch) error
	TouchPanel(ctx context.Context, id string) error
	DeletePanel(ctx context.Context, id string) error
	DeactivateAllPanels(ctx context.Context) error
}

// SettingsStore defines the key to JSON-value settings map.
type SettingsStore interface {
	SetSetting(ctx context.Context, key string, value any) error
	GetSetting(ctx context.Context, key string, out any) error
	SettingInt(ctx context.Context, key string, def int) int
	SettingString(ctx context.Context, key string, def string) string
	SettingBool(ctx context.Context, key string, def bool) bool
	AllSettings(ctx context.Context) (map[string]string, error)
}

// BrowserStore defines bookmark, speed dial, session, and profile persistence.
type BrowserStore interface {
	AddBookmark(ctx context.Context, b *Bookmark) error
	Bookmarks(ctx context.Context, folder *string) ([]*Bookmark, error)
	UpdateBookmark(ctx context.Context, id string, patch BookmarkPatch) error
	DeleteBookmark(ctx context.Context, id string) error
	BookmarkExists(ctx context.Context, url string) (bool, error)

	AddSpeedDial(ctx context.Context, sd *SpeedDial) error
	SpeedDials(ctx context.Context) ([]*SpeedDial, error)
	UpdateSpeedDial(ctx context.Context, id string, patch SpeedDialPatch) error
	ReorderSpeedDial(ctx context.Context, id string, position int) error
	DeleteSpeedDial(ctx context.Context, id string) error

	SaveSession(ctx context.Context, name string, tabs []SessionTab, autoSave bool) (string, error)
	Sessions(ctx context.Context, includeAutoSave bool) ([]*BrowserSession, error)
	SessionTabs(ctx context.Context, sessionID string) ([]*SessionTab, error)
	LastAutoSaveSession(ctx context.Context) (*BrowserSession, error)
	DeleteSession(ctx context.Context, id string) error
	RenameSession(ctx context.Context, id, name string) error

	BrowserConfig(ctx context.Context) (*BrowserConfig, error)
	SaveBrowserConfig(ctx context.Context, cfg *BrowserConfig) error

	CreateProfile(ctx context.Context, p *BrowserProfile) error
	Profiles(ctx context.Context) ([]*BrowserProfile, error)
	DefaultProfile(ctx context.Context) (*BrowserProfile, error)
	SetDefaultProfile(ctx context.Context, id string) error
	TouchProfile(ctx context.Context, id string) error
	DeleteProfile(ctx context.Context, id string) error
}
