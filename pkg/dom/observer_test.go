package dom

import "testing"

func TestObserverRecordsChildList(t *testing.T) {
	root := Div()
	obs := Observe(root, ObserveAll)

	child := Div(Span())
	_ = root.AppendChild(child)
	_ = root.RemoveChild(child)

	batch := obs.Take()
	if len(batch) != 2 {
		t.Fatalf("got %d records, want 2", len(batch))
	}
	if batch[0].Type != RecordChildList || batch[0].Target != root || len(batch[0].Added) != 1 || batch[0].Added[0] != child {
		t.Errorf("record 0 = %+v, want addition of child to root", batch[0])
	}
	if len(batch[1].Removed) != 1 || batch[1].Removed[0] != child {
		t.Errorf("record 1 = %+v, want removal of child", batch[1])
	}
	if obs.Pending() != 0 {
		t.Error("Take should clear the queue")
	}
}

func TestObserverAttributeOldValue(t *testing.T) {
	el := Div()
	root := Div(el)
	obs := Observe(root, ObserveAll)

	_ = el.SetIdentity("a1")
	_ = el.SetIdentity("a2")
	el.RemoveAttr(IdentityAttr)
	el.RemoveAttr("missing")

	batch := obs.Take()
	if len(batch) != 3 {
		t.Fatalf("got %d records, want 3", len(batch))
	}
	if batch[0].HasOldValue {
		t.Error("first stamp should have no old value")
	}
	if !batch[1].HasOldValue || batch[1].OldValue != "a1" {
		t.Errorf("second record old value = %q,%v, want a1,true", batch[1].OldValue, batch[1].HasOldValue)
	}
	if batch[2].OldValue != "a2" || batch[2].AttributeName != IdentityAttr {
		t.Errorf("removal record = %+v", batch[2])
	}
}

func TestObserverIgnoresDetachedNodes(t *testing.T) {
	root := Div()
	obs := Observe(root, ObserveAll)

	detached := Div()
	_ = detached.SetAttr("class", "x")
	_ = detached.AppendChild(Span())

	if n := obs.Pending(); n != 0 {
		t.Errorf("Pending = %d, want 0 for mutations outside the observed tree", n)
	}
}

func TestObserverOptions(t *testing.T) {
	root := Div(Div())
	obs := Observe(root, ObserveOptions{Attributes: true, AttributeFilter: []string{IdentityAttr}})

	_ = root.SetAttr("class", "x")
	_ = root.SetIdentity("a1")
	_ = root.Child(0).SetIdentity("a2") // not at root, Subtree off
	_ = root.AppendChild(Div())         // ChildList off

	batch := obs.Take()
	if len(batch) != 1 {
		t.Fatalf("got %d records, want 1", len(batch))
	}
	if batch[0].HasOldValue {
		t.Error("old value captured without AttributeOldValue")
	}
}

func TestObserverNotifyAndDisconnect(t *testing.T) {
	root := Div()
	obs := Observe(root, ObserveAll)

	_ = root.AppendChild(Div())
	_ = root.AppendChild(Div())

	select {
	case <-obs.Notify():
	default:
		t.Fatal("expected a pending notification")
	}
	select {
	case <-obs.Notify():
		t.Fatal("several mutations should share one notification")
	default:
	}

	obs.Disconnect()
	_ = root.AppendChild(Div())
	if obs.Pending() != 0 {
		t.Error("disconnected observer should not queue records")
	}
}

func TestBuilderRecordsRemovalFromLiveTree(t *testing.T) {
	child := Span()
	root := Div(child)
	obs := Observe(root, ObserveAll)

	wrapper := Section(child)

	batch := obs.Take()
	if len(batch) != 1 || batch[0].Target != root || len(batch[0].Removed) != 1 || batch[0].Removed[0] != child {
		t.Fatalf("batch = %+v, want the removal of child from root", batch)
	}
	if child.Parent() != wrapper || root.ChildCount() != 0 {
		t.Error("child should now belong to the new element only")
	}
}
