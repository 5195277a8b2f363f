package broker

import (
	"context"
	"fmt"
	"testing"
)

func TestChannelNames(t *testing.T) {
	if got := ChatChannel(42); got != "chat:42" {
		t.Errorf("ChatChannel = %q", got)
	}
	if got := UserChannel(7); got != "user:7" {
		t.Errorf("UserChannel = %q", got)
	}
}

func TestPublish_LocalFallbackWithoutClient(t *testing.T) {
	b := New(nil)
	defer b.Close()

	var got [][]byte
	b.Subscribe("chat:1", func(_ string, payload []byte) {
		got = append(got, payload)
	})

	b.Publish(context.Background(), "chat:1", []byte("one"))
	b.Publish(context.Background(), "chat:1", []byte("two"))

	if len(got) != 2 || string(got[0]) != "one" || string(got[1]) != "two" {
		t.Errorf("local delivery = %q", got)
	}
}

func TestPublish_PreservesPerChannelOrder(t *testing.T) {
	b := New(nil)
	defer b.Close()

	var got []string
	b.Subscribe("chat:9", func(_ string, payload []byte) {
		got = append(got, string(payload))
	})

	for i := 0; i < 50; i++ {
		b.Publish(context.Background(), "chat:9", []byte(fmt.Sprintf("m%d", i)))
	}
	for i, m := range got {
		if want := fmt.Sprintf("m%d", i); m != want {
			t.Fatalf("event %d = %q, want %q", i, m, want)
		}
	}
	if len(got) != 50 {
		t.Fatalf("delivered %d events, want 50", len(got))
	}
}

func TestPublish_UnknownChannelIsDropped(t *testing.T) {
	b := New(nil)
	defer b.Close()

	// No handler registered; must not panic.
	b.Publish(context.Background(), "chat:404", []byte("lost"))
}

func TestSubscribe_FirstHandlerWins(t *testing.T) {
	b := New(nil)
	defer b.Close()

	var first, second int
	b.Subscribe("user:1", func(string, []byte) { first++ })
	b.Subscribe("user:1", func(string, []byte) { second++ })

	b.Publish(context.Background(), "user:1", []byte("x"))

	if first != 1 || second != 0 {
		t.Errorf("first=%d second=%d, want 1/0", first, second)
	}
	if n := b.ChannelCount(); n != 1 {
		t.Errorf("ChannelCount = %d, want 1", n)
	}
}

func TestChannelCount_GrowsPerChannel(t *testing.T) {
	b := New(nil)
	defer b.Close()

	for i := 0; i < 5; i++ {
		b.Subscribe(ChatChannel(int64(i)), func(string, []byte) {})
	}
	if n := b.ChannelCount(); n != 5 {
		t.Errorf("ChannelCount = %d, want 5", n)
	}
}
