package outbox

import "testing"

func TestRepeatedEditsCoalesce(t *testing.T) {
	queue := NewChatQueue()

	queue.Push(NewSend(1, Content{Text: "A"}))
	first := NewEdit(1, 5, Content{Text: "B"})
	queue.Push(first)
	queue.Push(NewSend(1, Content{Text: "C"}))
	queue.Push(NewEdit(1, 5, Content{Text: "D"}))
	queue.Push(NewEdit(1, 5, Content{Text: "E"}))

	if queue.Len() != 3 {
		t.Fatalf("queue.Len() = %d, want 3", queue.Len())
	}

	if queue.entries[1].Content.Text != "E" {
		t.Error("edit must keep the position of the first push with the latest content")
	}

	select {
	case result := <-first.Result():
		if result.Err != nil {
			t.Error("replaced edit must resolve without error")
		}
	default:
		t.Error("replaced edit must be resolved")
	}
}

func TestPopFrontShiftsEditIndex(t *testing.T) {
	queue := NewChatQueue()

	queue.Push(NewSend(1, Content{Text: "A"}))
	queue.Push(NewEdit(1, 5, Content{Text: "B"}))
	queue.Push(NewEdit(1, 6, Content{Text: "C"}))

	entry, ok := queue.PopFront()

	if !ok || entry.Content.Text != "A" {
		t.Fatal("expected send A first")
	}

	if queue.edits[5] != 0 || queue.edits[6] != 1 {
		t.Errorf("unexpected edit index %v", queue.edits)
	}

	queue.Push(NewEdit(1, 6, Content{Text: "C2"}))

	entry, _ = queue.PopFront()

	if entry.TargetMessageID != 5 {
		t.Error("entry.TargetMessageID != 5")
	}

	if _, ok := queue.edits[5]; ok {
		t.Error("popped edit must leave the index")
	}

	entry, _ = queue.PopFront()

	if entry.Content.Text != "C2" {
		t.Error("entry.Content.Text != C2")
	}

	if _, ok := queue.PopFront(); ok {
		t.Error("empty queue must pop nothing")
	}

	if !queue.IsEmpty() {
		t.Error("queue must be empty")
	}
}

func TestEditAfterDispatchIsQueuedAgain(t *testing.T) {
	queue := NewChatQueue()

	queue.Push(NewEdit(1, 5, Content{Text: "B"}))
	queue.PopFront()
	queue.Push(NewEdit(1, 5, Content{Text: "C"}))

	if queue.Len() != 1 || queue.edits[5] != 0 {
		t.Error("edit of an already dispatched message must be queued anew")
	}
}

func TestSendsAndRepliesKeepOrder(t *testing.T) {
	queue := NewChatQueue()

	queue.Push(NewSend(1, Content{Text: "1"}))
	queue.Push(NewReply(1, 10, Content{Text: "2"}))
	queue.Push(NewSend(1, Content{Text: "3"}))
	queue.Push(NewReply(1, 10, Content{Text: "4"}))

	for _, want := range []string{"1", "2", "3", "4"} {
		entry, ok := queue.PopFront()

		if !ok || entry.Content.Text != want {
			t.Fatalf("want %s", want)
		}
	}
}
