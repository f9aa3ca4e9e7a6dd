package obslog

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"hardsub/internal/stitch"
)

func readAll(t *testing.T, input string, format Format) ([]stitch.Observation, error) {
	t.Helper()
	var out []stitch.Observation
	for obs, err := range Read(strings.NewReader(input), format) {
		if err != nil {
			return out, err
		}
		out = append(out, obs)
	}
	return out, nil
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "jsonl": FormatJSONL, "json": FormatJSONL} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("srt"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestReadText(t *testing.T) {
	got, err := readAll(t, "hello\n\nhello\r\nworld", FormatText)
	if err != nil {
		t.Fatal(err)
	}
	want := []stitch.Observation{{Index: 0, RawText: "hello"}, {Index: 1, RawText: ""}, {Index: 2, RawText: "hello"}, {Index: 3, RawText: "world"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}
}

func TestReadJSONL(t *testing.T) {
	input := `{"index":3,"text":"你好"}

{"index":5,"text":""}
`
	got, err := readAll(t, input, FormatJSONL)
	if err != nil {
		t.Fatal(err)
	}
	want := []stitch.Observation{{Index: 3, RawText: "你好"}, {Index: 5, RawText: ""}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}

	_, err = readAll(t, "{\"index\":0}\nnot json\n", FormatJSONL)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line-numbered error, got %v", err)
	}
}

func TestWriterRoundTripsThroughEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.jsonl")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	texts := []string{"<b>line</b>", "<b>line</b>", "", "next"}
	for i, text := range texts {
		if err := w.Write(stitch.Observation{Index: i, RawText: text}, time.Duration(i)*500*time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"text":"<b>line</b>"`) || !strings.Contains(string(data), `"timestamp_ms":1500`) {
		t.Fatalf("unexpected encoding %s", data)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	engine, err := stitch.New(stitch.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	err = engine.Run(context.Background(), Read(f, FormatJSONL), func(l stitch.Line) error {
		lines = append(lines, l.Text)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines, []string{"<b>line</b>", "next"}) {
		t.Fatalf("lines = %q", lines)
	}
}
