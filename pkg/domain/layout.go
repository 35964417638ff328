package domain

// ContainerLayout lists what one container held at the end of a run, in script order.
type ContainerLayout struct {
	Container string         `json:"container"`
	Parent    string         `json:"parent,omitempty"`
	InPlace   bool           `json:"in_place,omitempty"`
	Form      bool           `json:"form,omitempty"`
	Widgets   []LayoutWidget `json:"widgets"`
}

// LayoutWidget is one placed widget of a ContainerLayout.
type LayoutWidget struct {
	Type     string `json:"type"`
	Key      string `json:"key"`
	UserKey  string `json:"user_key,omitempty"`
	Stateful bool   `json:"stateful,omitempty"`
}
