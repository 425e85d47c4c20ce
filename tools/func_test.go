package tools

import (
	"context"
	"strings"
	"testing"
)

type weatherArgs struct {
	City string `json:"city" validate:"required" jsonschema:"description=City name"`
	Days int    `json:"days,omitempty" validate:"omitempty,min=1,max=14"`
}

type forecast struct {
	City string `json:"city"`
	Days int    `json:"days"`
}

func TestFuncDecodesValidatesAndEncodes(t *testing.T) {
	f := NewFunc("get_weather", "forecast", func(ctx context.Context, in weatherArgs) (forecast, error) {
		if in.Days == 0 {
			in.Days = 7
		}
		return forecast{City: in.City, Days: in.Days}, nil
	})

	props, _ := f.Schema()["properties"].(map[string]any)
	if _, ok := props["city"]; !ok {
		t.Fatalf("schema missing city: %+v", f.Schema())
	}

	out, err := f.Execute(context.Background(), `{"city":"Lisbon"}`)
	if err != nil || out != `{"city":"Lisbon","days":7}` {
		t.Fatalf("execute: %v %q", err, out)
	}
	if _, err := f.Execute(context.Background(), `{"days":3}`); err == nil {
		t.Fatalf("expected required city error")
	}
	if _, err := f.Execute(context.Background(), `{"city":"x","days":40}`); err == nil {
		t.Fatalf("expected range error")
	}
	if _, err := f.Execute(context.Background(), `not json`); err == nil || !strings.Contains(err.Error(), "get_weather") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
