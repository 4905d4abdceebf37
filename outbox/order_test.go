package outbox

import "testing"

func TestAddOrder(t *testing.T) {
	order := newChatOrder()

	order.Push(1)
	order.Push(2)
	order.Push(1)

	first := order.First()
	second := first.Next

	if first.ChatID != 1 {
		t.Error("first.ChatID != 1")
	}

	if second.ChatID != 2 {
		t.Error("second.ChatID != 2")
	}

	if order.lastMember != second {
		t.Error("order.lastMember != second")
	}

	if second.Next != nil {
		t.Error("second.Next != nil")
	}

	if order.Len() != 2 {
		t.Error("order.Len() != 2")
	}
}

func TestOmitFirstMember(t *testing.T) {
	order := newChatOrder()

	order.Push(1)
	order.Push(2)

	order.Omit(1)

	second := order.First()

	if second.ChatID != 2 {
		t.Error("second.ChatID != 2")
	}

	if second.Next != nil {
		t.Error("second.Next != nil")
	}

	if order.lastMember != second {
		t.Error("order.lastMember != second")
	}
}

func TestOmitLastMember(t *testing.T) {
	order := newChatOrder()

	order.Push(1)
	order.Push(2)

	order.Omit(2)

	first := order.First()

	if first.ChatID != 1 {
		t.Error("first.ChatID != 1")
	}

	if order.lastMember != first {
		t.Error("order.lastMember != first")
	}

	if first.Next != nil {
		t.Error("first.Next != nil")
	}

	order.Push(3)

	if first.Next == nil || first.Next.ChatID != 3 {
		t.Error("push after omitting the tail must link to the new tail")
	}
}

func TestOmitMiddleMember(t *testing.T) {
	order := newChatOrder()

	order.Push(1)
	order.Push(2)
	order.Push(3)

	order.Omit(2)

	snapshot := order.Snapshot()

	if len(snapshot) != 2 || snapshot[0] != 1 || snapshot[1] != 3 {
		t.Errorf("unexpected snapshot %v", snapshot)
	}

	if order.lastMember.ChatID != 3 {
		t.Error("order.lastMember.ChatID != 3")
	}
}

func TestOmitOnlyMember(t *testing.T) {
	order := newChatOrder()

	order.Push(1)
	order.Omit(1)
	order.Omit(1)

	if order.First() != nil || order.lastMember != nil {
		t.Error("order must be empty")
	}

	order.Push(5)

	if order.First().ChatID != 5 {
		t.Error("order.First().ChatID != 5")
	}
}
