package protocol

import (
	"encoding/json"
	"fmt"
)

// How the node joined the network, reported in ping replies.
const (
	ModeStation     = "station"
	ModeAccessPoint = "access-point"
)

// Reply is the node→controller answer to a ping. Absence of a reply is the
// only failure signal the protocol has.
type Reply struct {
	ID   string `json:"id"`
	IP   string `json:"ip"`
	Mode string `json:"mode"`
	OK   bool   `json:"ok"`
}

func (r *Reply) String() string {
	return fmt.Sprintf("id:%s ip:%s mode:%s ok:%t", r.ID, r.IP, r.Mode, r.OK)
}

func EncodeReply(r *Reply) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeReply(payload []byte) (*Reply, error) {
	var r Reply
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if r.ID == "" {
		return nil, fmt.Errorf("%w: reply missing id", ErrMalformed)
	}
	return &r, nil
}
