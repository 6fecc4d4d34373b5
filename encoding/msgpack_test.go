package encoding

import (
	"bytes"
	"sync"
	"testing"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"string", "rnd_5042"},
		{"int", 12345},
		{"float64", 44.97},
		{"bool", true},
		{"slice", []string{"a", "b", "c"}},
		{"map", map[string]interface{}{"name": "rnd_1", "lanes": 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Marshal(tc.input)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if len(data) == 0 {
				t.Error("Expected non-empty result")
			}
		})
	}
}

func TestMarshal_DeterministicMaps(t *testing.T) {
	m := map[string]interface{}{"z": 1, "a": 2, "m": 3, "q": 4, "b": 5}
	first, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(m)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("Expected identical encodings for the same map")
		}
	}
}

func TestMarshal_Concurrent(t *testing.T) {
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				result, err := Marshal(map[string]interface{}{"goroutine": id, "iteration": j})
				if err != nil {
					t.Errorf("Marshal failed: %v", err)
					return
				}
				if len(result) == 0 {
					t.Error("Expected non-empty result")
					return
				}
			}
		}(i)
	}

	wg.Wait()
}

func TestUnmarshal_StringNotBytes(t *testing.T) {
	data, err := Marshal(map[string]interface{}{"name": "rnd_5042"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if _, ok := decoded["name"].(string); !ok {
		t.Errorf("Expected string, got %T", decoded["name"])
	}
}

func TestRoundTrip_Struct(t *testing.T) {
	type node struct {
		Name  string   `msgpack:"name"`
		Lat   *float64 `msgpack:"lat"`
		Lanes int      `msgpack:"lanes,omitempty"`
	}
	lat := 44.97
	data, err := Marshal(node{Name: "rnd_1", Lat: &lat})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got node
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Name != "rnd_1" || got.Lat == nil || *got.Lat != lat || got.Lanes != 0 {
		t.Errorf("Unexpected decode: %+v", got)
	}
}
