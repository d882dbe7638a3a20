package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
)

func TestEncodeCSV_UnionHeader(t *testing.T) {
	records := []client.Record{
		{"a": "1", "b": "2"},
		{"a": "3", "c": "4"},
	}

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, records); err != nil {
		t.Fatalf("EncodeCSV() failed: %v", err)
	}

	want := "a,b,c\n1,2,\n3,,4\n"
	if buf.String() != want {
		t.Errorf("EncodeCSV() = %q, want %q", buf.String(), want)
	}
}

func TestEncodeCSV_CellFormatting(t *testing.T) {
	records := []client.Record{
		{
			"big":    json.Number("123456789012345678901234567890"),
			"nil":    nil,
			"flag":   true,
			"nested": map[string]any{"k": "v"},
			"list":   []any{"x", "y"},
			"quoted": "a,b",
		},
	}

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, records); err != nil {
		t.Fatalf("EncodeCSV() failed: %v", err)
	}

	want := "big,flag,list,nested,nil,quoted\n" +
		`123456789012345678901234567890,true,"[""x"",""y""]","{""k"":""v""}",,"a,b"` + "\n"
	if buf.String() != want {
		t.Errorf("EncodeCSV() = %q, want %q", buf.String(), want)
	}
}

func TestHeader(t *testing.T) {
	tests := []struct {
		name    string
		records []client.Record
		want    []string
	}{
		{"empty", nil, []string{}},
		{"single", []client.Record{{"z": 1, "a": 2}}, []string{"a", "z"}},
		{"union", []client.Record{{"b": 1}, {"a": 1}, {"c": 1, "b": 2}}, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Header(tt.records)
			if len(got) != len(tt.want) {
				t.Fatalf("Header() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Header()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
