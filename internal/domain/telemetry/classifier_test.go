package telemetry

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		value float64
		want  Kind
	}{
		{49.9, KindAcceleration},
		{50.0, KindTension},
		{2000, KindTension},
		{0, KindAcceleration},
		{-12.5, KindAcceleration},
	}
	for _, tt := range tests {
		if got := Classify(tt.value); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestClassifierCustomThreshold(t *testing.T) {
	c := NewClassifier(10)
	if got := c.Classify(9.99); got != KindAcceleration {
		t.Fatalf("expected acceleration below custom threshold, got %s", got)
	}
	if got := c.Classify(10); got != KindTension {
		t.Fatalf("expected tension at custom threshold, got %s", got)
	}

	if NewClassifier(0).Threshold != DefaultThreshold {
		t.Fatal("zero threshold should fall back to the default")
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind("tension"); !ok || k != KindTension {
		t.Fatalf("ParseKind(tension) = %q, %v", k, ok)
	}
	if _, ok := ParseKind("pressure"); ok {
		t.Fatal("unknown kinds must be rejected")
	}
}
