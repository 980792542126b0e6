// Package store provides persistent storage for the widget sidebar using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with multiple specialized
// interfaces:
//
//   - CategoryStore: Sidebar categories with manual ordering and usage counters
//   - ItemStore: User-curated content items with transparent encryption
//   - ListStore: Named ordered item groups with dense 1..N positions
//   - HistoryStore: Bounded clipboard history
//   - PanelStore: Pinned floating panels with saved geometry
//   - SettingsStore: Key to JSON-value application settings
//   - BrowserStore: Bookmarks, speed dials, sessions, and profiles
//
// SQLiteStore implements all interfaces in a single struct, allowing easy
// composition while maintaining clear interface boundaries.
//
// # Encryption
//
// Item content marked sensitive is encrypted through internal/crypt before it
// reaches disk and decrypted on every read. Rows whose ciphertext can no
// longer be decrypted surface crypt.DecryptFailedPlaceholder instead of
// failing the query.
//
// # Ordering
//
// List members occupy positions 1..N within their group with no gaps or
// duplicates. Every operation that moves, inserts, or replaces list rows
// runs in a transaction so a partial failure never breaks the sequence.
package store
