// Package queue routes DMS change events delivered over SQS to the
// migration processor.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"data-migration/domain/legacy"
	"data-migration/pkg/utils"
)

// DMS change methods.
const (
	MethodInsert = "insert"
	MethodUpdate = "update"
	MethodDelete = "delete"
)

// Event is a single row change captured by DMS.
type Event struct {
	Type      string `json:"type"`
	RecordID  int    `json:"record_id" validate:"required"`
	ServiceID int    `json:"service_id"`
	TableName string `json:"table_name" validate:"required"`
	Method    string `json:"method" validate:"required"`
}

// ErrUnroutable marks events that can never be processed. Messages failing
// with it are acknowledged rather than retried.
var ErrUnroutable = errors.New("event cannot be routed")

var (
	ErrMalformedEvent    = fmt.Errorf("%w: malformed event", ErrUnroutable)
	ErrUnsupportedTable  = fmt.Errorf("%w: unsupported table", ErrUnroutable)
	ErrUnsupportedMethod = fmt.Errorf("%w: unsupported method", ErrUnroutable)
)

// ParseEvent decodes and validates an SQS message body.
func ParseEvent(body string) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return Event{}, fmt.Errorf("%w: failed to decode body: %v", ErrMalformedEvent, err)
	}
	if err := utils.ValidateStruct(event); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return event, nil
}

// Route is the synchronisation an event asks for.
type Route struct {
	ServiceID int
	Method    string
}

// Resolve maps an event to the service it changes. A service row change
// syncs that service; a change to one of its child rows syncs the parent
// service as an update.
func (e Event) Resolve() (Route, error) {
	switch {
	case e.TableName == legacy.TableServices:
		if e.Method != MethodInsert && e.Method != MethodUpdate {
			return Route{}, fmt.Errorf("%w %q for table %s", ErrUnsupportedMethod, e.Method, e.TableName)
		}
		return Route{ServiceID: e.RecordID, Method: e.Method}, nil
	case legacy.IsChildTable(e.TableName):
		if e.ServiceID == 0 {
			return Route{}, fmt.Errorf("%w: %s event has no service_id", ErrMalformedEvent, e.TableName)
		}
		return Route{ServiceID: e.ServiceID, Method: MethodUpdate}, nil
	default:
		return Route{}, fmt.Errorf("%w %q", ErrUnsupportedTable, e.TableName)
	}
}
