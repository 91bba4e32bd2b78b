package event

import (
	"sync"
	"testing"
)

func TestEmitter_On_DeliversMatchingEvents(t *testing.T) {
	em := NewEmitter()

	var got []Event
	em.On(ChatMessageContent, func(ev Event) {
		got = append(got, ev)
	})

	em.Emit(MessageContentEvent{ChatID: "c1", MessageID: "m1", Content: "hello"})
	em.Emit(MessageCreatedEvent{ChatID: "c1", MessageID: "m2", Role: "assistant"})

	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	content, ok := got[0].(MessageContentEvent)
	if !ok {
		t.Fatalf("got event type %T, want MessageContentEvent", got[0])
	}
	if content.Content != "hello" {
		t.Fatalf("content = %q, want %q", content.Content, "hello")
	}
}

func TestEmitter_OnAny_DeliversEverything(t *testing.T) {
	em := NewEmitter()

	var names []string
	em.OnAny(func(ev Event) {
		names = append(names, ev.EventName())
	})

	em.Emit(MessageCreatedEvent{ChatID: "c1", MessageID: "m1", Role: "assistant"})
	em.Emit(MessageContentEvent{ChatID: "c1", MessageID: "m1", Content: "a"})
	em.Emit(MessageFinalizedEvent{ChatID: "c1", MessageID: "m1", Content: "a"})

	want := []string{ChatMessageCreated, ChatMessageContent, ChatMessageFinalized}
	if len(names) != len(want) {
		t.Fatalf("got %d events, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestEmitter_Unsubscribe(t *testing.T) {
	em := NewEmitter()

	count := 0
	off := em.OnAny(func(Event) { count++ })

	em.Emit(PlaceholderRemovedEvent{ChatID: "c1"})
	off()
	off() // idempotent
	em.Emit(PlaceholderRemovedEvent{ChatID: "c1"})

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestEmitter_UnsubscribeOutOfOrder(t *testing.T) {
	em := NewEmitter()

	countA, countB, countC := 0, 0, 0
	offA := em.OnAny(func(Event) { countA++ })
	offB := em.OnAny(func(Event) { countB++ })
	em.OnAny(func(Event) { countC++ })

	// Removing an earlier subscriber must not detach a later one from
	// its own unsubscribe
	offA()
	offB()
	em.Emit(PlaceholderRemovedEvent{ChatID: "c1"})

	if countA != 0 || countB != 0 {
		t.Fatalf("unsubscribed listeners fired: A=%d B=%d", countA, countB)
	}
	if countC != 1 {
		t.Fatalf("surviving listener count = %d, want 1", countC)
	}
}

func TestEmitter_On_UnsubscribeOutOfOrder(t *testing.T) {
	em := NewEmitter()

	countA, countB := 0, 0
	offA := em.On(ChatError, func(Event) { countA++ })
	offB := em.On(ChatError, func(Event) { countB++ })

	offA()
	em.Emit(ErrorEvent{ChatID: "c1", Message: "boom"})
	offB()
	em.Emit(ErrorEvent{ChatID: "c1", Message: "boom"})

	if countA != 0 {
		t.Fatalf("unsubscribed listener fired %d times", countA)
	}
	if countB != 1 {
		t.Fatalf("second listener count = %d, want 1", countB)
	}
}

func TestEmitter_ConcurrentEmit(t *testing.T) {
	em := NewEmitter()

	var mu sync.Mutex
	count := 0
	em.OnAny(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				em.Emit(MessageContentEvent{ChatID: "c1", MessageID: "m1", Content: "x"})
			}
		}()
	}
	wg.Wait()

	if count != 1000 {
		t.Fatalf("count = %d, want 1000", count)
	}
}

func TestChatScope(t *testing.T) {
	events := []Event{
		MessageCreatedEvent{ChatID: "c9", MessageID: "m", Role: "assistant"},
		MessageContentEvent{ChatID: "c9", MessageID: "m", Content: "x"},
		MessageFinalizedEvent{ChatID: "c9", MessageID: "m", Content: "x"},
		PlaceholderRemovedEvent{ChatID: "c9"},
		ErrorEvent{ChatID: "c9", Message: "boom"},
	}
	for _, ev := range events {
		scoped, ok := ev.(ChatScoped)
		if !ok {
			t.Fatalf("%s does not implement ChatScoped", ev.EventName())
		}
		if scoped.ChatScope() != "c9" {
			t.Fatalf("%s scope = %q, want %q", ev.EventName(), scoped.ChatScope(), "c9")
		}
	}
}
