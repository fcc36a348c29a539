package types

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// Reading is what one completed poll cycle hands to its consumers.
type Reading struct {
	ReceivedAt time.Time    `json:"received_at"`
	Record     Record       `json:"record"`
	Derived    DerivedState `json:"derived"`

	// Only set when raw telegram echo is enabled
	Raw string `json:"raw,omitempty"`
}

func (r *Reading) ToJsonBytes() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		logrus.WithError(err).Error("Error marshaling reading")
		return nil
	}
	return data
}

// Returns nil if the message is not a valid reading.
func ReadingFromJsonBytes(data []byte) *Reading {
	var reading Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil
	}
	return &reading
}
