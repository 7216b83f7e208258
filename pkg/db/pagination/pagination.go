package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50" validate:"gte=1,lte=250"` // Min 1, Max 250
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// KeysetCursor is a decoded cursor with typed key columns. Binding the typed
// values keeps timestamp comparisons correct regardless of how the driver
// serializes time columns.
type KeysetCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// DecodeKeyset parses a page token back into the typed key columns used by
// keyset predicates. ok is false for empty or malformed tokens.
func DecodeKeyset(token string) (KeysetCursor, bool) {
	cursor, err := DecodeCursor(token)
	if err != nil || cursor.CreatedAt == "" {
		return KeysetCursor{}, false
	}

	createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return KeysetCursor{}, false
	}
	id, err := snowflake.ParseString(cursor.ID)
	if err != nil {
		return KeysetCursor{}, false
	}

	return KeysetCursor{ID: id, CreatedAt: createdAt}, true
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// BuildCursorPageInfo derives page info from an over-fetched result set.
// Callers fetch limit+1 rows; the extra row only signals another page.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) *PageInfo {
	if len(data) == 0 {
		return &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	return &PageInfo{
		HasMore:       hasMore,
		NextPageToken: extractCursor(data[len(data)-1]),
	}
}
