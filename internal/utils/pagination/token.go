package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// DefaultLimit is used when a caller does not ask for a page size.
const DefaultLimit = 50

// EncodeToken creates a base64 encoded token from the creation time and id of
// the last document on a page. Lists are ordered by (createdAt, id).
func EncodeToken(createdAt time.Time, id string) string {
	tokenStr := fmt.Sprintf("%s|%s", createdAt.UTC().Format(timeFormat), id)
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses the token back into creation time and id.
func DecodeToken(token string) (time.Time, string, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (split)")
	}

	createdAt, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (created_at parse): %w", err)
	}
	return createdAt, parts[1], nil
}

// Page returns at most limit entries of sorted that come after nextToken,
// plus the token for the following page when more entries remain.
// sorted must already be ordered by (createdAt, id) and key must report them.
func Page[T any](sorted []T, key func(*T) (time.Time, string), limit int, nextToken *string) ([]T, *string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	start := 0
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, err := DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, err
		}
		start = len(sorted)
		for i := range sorted {
			createdAt, id := key(&sorted[i])
			if createdAt.After(lastCreatedAt) || (createdAt.Equal(lastCreatedAt) && id > lastID) {
				start = i
				break
			}
		}
	}

	end := min(start+limit, len(sorted))
	page := sorted[start:end]
	if end == len(sorted) || len(page) == 0 {
		return page, nil, nil
	}
	createdAt, id := key(&page[len(page)-1])
	token := EncodeToken(createdAt, id)
	return page, &token, nil
}
