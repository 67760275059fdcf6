package protocol

// ORDERS (game client -> server): the full UnitOrder model collection.
type OrdersMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	SentAt          int64         `json:"sent_at,omitempty"`
	Orders          []OrderRecord `json:"orders"`
}

// OrderRecord mirrors the attributes of one UnitOrder model.
type OrderRecord struct {
	ID              string `json:"id"`
	UnitID          string `json:"unit_id"`
	Count           int    `json:"count"`
	CreatedAt       int64  `json:"created_at"`
	ToBeCompletedAt int64  `json:"to_be_completed_at"`
}

// ACK (server -> game client)
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	BatchID         string `json:"batch_id"`
	Revision        uint64 `json:"revision"`
	Accepted        int    `json:"accepted"`
}

// PANEL (server -> overlay): replace the content element with HTML.
type PanelMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ContentID       string          `json:"content_id"`
	Key             string          `json:"key"`
	HTML            string          `json:"html"`
	Loading         bool            `json:"loading,omitempty"`
	Units           int             `json:"units"`
	At              int64           `json:"at"`
	Background      string          `json:"background,omitempty"`
	Settings        DisplaySettings `json:"settings"`
}

type DisplaySettings struct {
	BackgroundType  string  `json:"backgroundType"`
	BackgroundValue string  `json:"backgroundValue"`
	Opacity         float64 `json:"opacity"`
	Size            string  `json:"size"`
}

// BOOTSTRAP (server -> overlay): everything needed to open the dialog.
type BootstrapResponse struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Window          WindowParams    `json:"window"`
	ContentID       string          `json:"content_id"`
	RefreshPeriodMS int64           `json:"refresh_period_ms"`
	HTML            string          `json:"html"`
	Groups          []CatalogRef    `json:"groups"`
	Settings        DisplaySettings `json:"settings"`
	Builtins        []string        `json:"builtins"`
}

type WindowParams struct {
	Title  string `json:"title"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	// Position follows the dialog manager's [x, y] convention, e.g. ["center", 60].
	Position [2]any `json:"position"`
}

type CatalogRef struct {
	Kind  string   `json:"kind"`
	Title string   `json:"title"`
	Units []string `json:"units"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
