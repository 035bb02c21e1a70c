package telemetry

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrDecode marks an inbound message that is neither an envelope nor a bare reading.
var ErrDecode = errors.New("telemetry: malformed sample")

// MessageTypeSample is the envelope type carrying a reading.
const MessageTypeSample = "sample"

// Reading is a decoded inbound sample before classification.
type Reading struct {
	// Time is zero when the client did not send one.
	Time  float64
	Value float64
	// Kind is set only when the client declared it explicitly.
	Kind Kind
}

type rawReading struct {
	Time  *float64 `json:"time"`
	Value *float64 `json:"value"`
}

type envelope struct {
	Type string      `json:"type"`
	Kind string      `json:"kind,omitempty"`
	Data *rawReading `json:"data"`
}

// DecodeReading parses {"type":"sample","kind"?,"data":{time,value}} and
// falls back to a bare {time,value} record.
func DecodeReading(payload []byte) (Reading, error) {
	var env envelope
	envErr := sonic.Unmarshal(payload, &env)
	if envErr == nil && env.Data != nil {
		if env.Type != "" && env.Type != MessageTypeSample {
			return Reading{}, fmt.Errorf("%w: unsupported message type %q", ErrDecode, env.Type)
		}
		r, err := env.Data.reading()
		if err != nil {
			return Reading{}, err
		}
		if kind, ok := ParseKind(env.Kind); ok {
			r.Kind = kind
		}
		return r, nil
	}

	var bare rawReading
	if err := sonic.Unmarshal(payload, &bare); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return bare.reading()
}

func (r rawReading) reading() (Reading, error) {
	if r.Value == nil {
		return Reading{}, fmt.Errorf("%w: missing value", ErrDecode)
	}
	out := Reading{Value: *r.Value}
	if r.Time != nil {
		out.Time = *r.Time
	}
	return out, nil
}
