package models

// Item identifies a marketplace listing. Key is the market hash name and is
// the key every other component uses. NameID and Currency are needed by the
// live order-book endpoint.
type Item struct {
	Key         string `json:"item_key"`
	DisplayName string `json:"display_name"`
	NameID      string `json:"item_nameid,omitempty"`
	Currency    int    `json:"currency,omitempty"`
}

// Name returns the human-readable name, falling back to the key.
func (i Item) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Key
}
