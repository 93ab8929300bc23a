package cache

import (
	"testing"
	"time"
)

func withLocal(t *testing.T, name string) {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("zone %s unavailable: %v", name, err)
	}
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })
}

func TestMsgpackCodec_TimesDecodeInUTC(t *testing.T) {
	withLocal(t, "America/New_York")

	type span struct {
		From *time.Time `msgpack:"from"`
		To   *time.Time `msgpack:"to"`
	}
	type entry struct {
		CreatedAt time.Time            `msgpack:"createdAt"`
		Span      span                 `msgpack:"span"`
		History   []time.Time          `msgpack:"history"`
		ByName    map[string]time.Time `msgpack:"byName"`
	}

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := at.Add(36 * time.Hour)
	in := entry{
		CreatedAt: at,
		Span:      span{From: &at, To: &later},
		History:   []time.Time{at, later},
		ByName:    map[string]time.Time{"first": at},
	}

	codec := NewMsgpackCodec()
	data, err := codec.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got entry
	if err := codec.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	check := func(name string, got, want time.Time) {
		t.Helper()
		if got.Location() != time.UTC || !got.Equal(want) {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
	check("createdAt", got.CreatedAt, at)
	check("span.from", *got.Span.From, at)
	check("span.to", *got.Span.To, later)
	check("history[1]", got.History[1], later)
	check("byName", got.ByName["first"], at)

	if got.CreatedAt.Format(time.RFC3339) != "2026-01-01T00:00:00Z" {
		t.Errorf("unexpected rendering %s", got.CreatedAt.Format(time.RFC3339))
	}
}
