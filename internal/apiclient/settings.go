package apiclient

import (
	"context"
	"fmt"
	"net/http"
)

// SettingUpdate is one row of an admin bulk settings update.
type SettingUpdate struct {
	Key   string `json:"setting_key"`
	Value string `json:"setting_value"`
	Group string `json:"setting_group"`
}

// GetSettings fetches the public site settings as a flat key/value map.
// No authentication is required.
func (c *Client) GetSettings(ctx context.Context) (map[string]string, error) {
	raw := make(map[string]any)
	if err := c.do(ctx, http.MethodGet, "/api/v1/settings", "", nil, &raw); err != nil {
		return nil, err
	}

	// Values are strings upstream, but tolerate numbers and booleans.
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// BulkUpdateSettings writes a batch of settings. Requires an admin token.
func (c *Client) BulkUpdateSettings(ctx context.Context, token string, updates []SettingUpdate) error {
	return c.do(ctx, http.MethodPut, "/api/v1/admin/settings", token, updates, nil)
}
