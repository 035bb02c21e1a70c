package telemetry

import (
	"errors"
	"testing"
)

func TestDecodeReading(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Reading
		wantErr bool
	}{
		{name: "bare record", payload: `{"time":100.0,"value":9.8}`, want: Reading{Time: 100, Value: 9.8}},
		{name: "bare without time", payload: `{"value":1200}`, want: Reading{Value: 1200}},
		{name: "envelope", payload: `{"type":"sample","data":{"time":1.5,"value":3}}`, want: Reading{Time: 1.5, Value: 3}},
		{name: "envelope without type", payload: `{"data":{"time":2,"value":4}}`, want: Reading{Time: 2, Value: 4}},
		{
			name:    "envelope with kind",
			payload: `{"type":"sample","kind":"tension","data":{"time":1,"value":12}}`,
			want:    Reading{Time: 1, Value: 12, Kind: KindTension},
		},
		{
			name:    "unknown kind falls back to heuristic",
			payload: `{"type":"sample","kind":"pressure","data":{"value":12}}`,
			want:    Reading{Value: 12},
		},
		{name: "other envelope type", payload: `{"type":"ping","data":{"value":1}}`, wantErr: true},
		{name: "missing value", payload: `{"time":1}`, wantErr: true},
		{name: "not json", payload: `hello`, wantErr: true},
		{name: "wrong value type", payload: `{"time":1,"value":"high"}`, wantErr: true},
		{name: "array", payload: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeReading([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Fatalf("expected ErrDecode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("DecodeReading() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
