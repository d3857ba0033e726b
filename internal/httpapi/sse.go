package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
)

func writeSSEEvent(w io.Writer, event map[string]any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
	return err
}
