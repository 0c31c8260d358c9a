package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ResolveChatID turns a public "@group" name into the numeric chat id to put
// in the profile's WGP field. Numeric ids are returned unchanged.
func (a *API) ResolveChatID(ctx context.Context, name string) (string, error) {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return "", fmt.Errorf("empty chat name")
	}
	if _, err := strconv.ParseInt(clean, 10, 64); err == nil {
		return clean, nil
	}
	if !strings.HasPrefix(clean, "@") {
		clean = "@" + clean
	}

	raw, err := a.call(ctx, "getChat", map[string]any{"chat_id": clean})
	if err != nil {
		return "", err
	}
	var chat struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &chat); err != nil {
		return "", err
	}
	if chat.ID == 0 {
		return "", fmt.Errorf("telegram returned empty ID for %s", clean)
	}
	return strconv.FormatInt(chat.ID, 10), nil
}
