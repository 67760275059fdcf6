package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/orders.schema.json
var ordersSchemaJSON string

//go:embed schemas/panel.schema.json
var panelSchemaJSON string

var (
	ordersSchema = jsonschema.MustCompileString("orders.schema.json", ordersSchemaJSON)
	panelSchema  = jsonschema.MustCompileString("panel.schema.json", panelSchemaJSON)
)

// DecodeOrders validates raw against the ORDERS schema and decodes it.
func DecodeOrders(raw []byte) (OrdersMsg, error) {
	var msg OrdersMsg
	if err := validate(ordersSchema, raw); err != nil {
		return msg, fmt.Errorf("orders: %w", err)
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("orders: %w", err)
	}
	return msg, nil
}

// ValidatePanel checks an outgoing PANEL message. Used by tests and the replay tool.
func ValidatePanel(raw []byte) error {
	if err := validate(panelSchema, raw); err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	return nil
}

func validate(s *jsonschema.Schema, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}
