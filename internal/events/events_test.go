//nolint:varnamelen // Test files use idiomatic short variable names (t, etc.)
package events_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/filesystem"
)

func TestEventTypesImplementEvent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	all := []events.Event{
		events.NodesInserted{}, events.NodesRemoved{}, events.NodeChanged{}, events.NodesRepaint{},
		events.BusyStarted{}, events.BusyStopped{}, events.ProgressChanged{},
		events.OperationFinished{}, events.ErrorReported{},
	}

	g.Expect(all).To(HaveLen(9))
}

func TestTreeObserver_ForwardsEdits(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	rec := &events.Recorder{}
	tr := tree.New(filesystem.FileEntry{Path: "/", Name: "/", IsDir: true}, events.TreeObserver{Emitter: rec})

	added := tr.UpdateChildren(tr.Root(), []filesystem.FileEntry{{Path: "/a", Name: "a"}})
	tr.UpdateChildren(tr.Root(), []filesystem.FileEntry{{Path: "/a", Name: "a", Size: 1}})
	tr.UpdateChildren(tr.Root(), nil)

	g.Expect(events.Of[events.NodesInserted](rec)).To(Equal([]events.NodesInserted{
		{Parent: tr.Root(), Children: added, Indices: []int{0}},
	}))
	g.Expect(events.Of[events.NodeChanged](rec)).To(Equal([]events.NodeChanged{{Node: added[0]}}))
	g.Expect(events.Of[events.NodesRemoved](rec)).To(HaveLen(1))
}

func TestQueue_DeliversInOrder(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	q := events.NewQueue()
	for i := 0; i < 100; i++ {
		q.Emit(events.BusyStopped{Node: tree.Handle(i)})
	}

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		event, ok := q.Next(ctx)
		g.Expect(ok).To(BeTrue())
		g.Expect(event).To(Equal(events.BusyStopped{Node: tree.Handle(i)}))
	}
}

func TestQueue_NextWakesOnEmit(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	q := events.NewQueue()
	got := make(chan events.Event, 1)

	go func() {
		event, _ := q.Next(context.Background())
		got <- event
	}()

	time.Sleep(5 * time.Millisecond)
	q.Emit(events.ErrorReported{Message: "x"})

	g.Eventually(got).Should(Receive(Equal(events.ErrorReported{Message: "x"})))
}

func TestQueue_CloseDrainsThenStops(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	q := events.NewQueue()
	q.Emit(events.NodeChanged{Node: 1})
	q.Close()
	q.Emit(events.NodeChanged{Node: 2})

	ctx := context.Background()

	event, ok := q.Next(ctx)
	g.Expect(ok).To(BeTrue())
	g.Expect(event).To(Equal(events.NodeChanged{Node: 1}))

	_, ok = q.Next(ctx)
	g.Expect(ok).To(BeFalse())
}

func TestQueue_NextHonoursContext(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := events.NewQueue().Next(ctx)

	g.Expect(ok).To(BeFalse())
}

func TestMulti_FansOut(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	a, b := &events.Recorder{}, &events.Recorder{}
	events.Multi{a, b, events.Discard}.Emit(events.NodeChanged{Node: 7})

	g.Expect(a.Events()).To(HaveLen(1))
	g.Expect(b.Events()).To(HaveLen(1))
}
