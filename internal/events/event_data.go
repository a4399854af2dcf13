package events

import "encoding/json"

// EventData is the interface that all event data types must implement
type EventData interface {
	EventType() EventType
}

// EntityData identifies the entity a mutation event is about
type EntityData struct {
	Type     EventType `json:"-"`
	Resource string    `json:"resource"`
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
}

// EventType returns the mutation event type carried by the data
func (d *EntityData) EventType() EventType {
	return d.Type
}

// CacheInvalidatedData lists the resources dropped from the query cache
type CacheInvalidatedData struct {
	Resources []string `json:"resources"`
	Reason    string   `json:"reason"`
}

// EventType returns the event type for CacheInvalidatedData
func (d *CacheInvalidatedData) EventType() EventType {
	return CacheInvalidated
}

// EntityStoreChangedData is a change received from the entity store feed
type EntityStoreChangedData struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	ID       string `json:"id"`
}

// EventType returns the event type for EntityStoreChangedData
func (d *EntityStoreChangedData) EventType() EventType {
	return EntityStoreChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// convertEventDataToMap flattens typed data into the map carried by Event
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}
	return result
}
