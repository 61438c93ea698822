package scheduler

import (
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNodes(names ...string) map[string]*node.Node {
	out := make(map[string]*node.Node, len(names))
	for _, name := range names {
		out[name] = node.New(&formula.Formula{Name: name, Version: "1.0"}, formula.BuildOptions{})
	}
	return out
}

func drain(ch <-chan *node.Node) []string {
	var ids []string
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return ids
			}
			ids = append(ids, n.ID())
		default:
			return ids
		}
	}
}

func TestScheduler_ReleasesDependentsInOrder(t *testing.T) {
	n := newNodes("zlib", "openssl", "libpq", "postgresql")
	n["libpq"].DependOn(n["openssl"])
	n["libpq"].DependOn(n["zlib"])
	n["postgresql"].DependOn(n["libpq"])

	s := New([]*node.Node{n["zlib"], n["openssl"], n["libpq"], n["postgresql"]})
	assert.ElementsMatch(t, []string{"zlib", "openssl"}, drain(s.ReadyNodes()))

	s.Complete(n["zlib"])
	assert.Empty(t, drain(s.ReadyNodes()), "libpq still waits for openssl")

	s.Complete(n["openssl"])
	assert.Equal(t, []string{"libpq"}, drain(s.ReadyNodes()))

	s.Complete(n["libpq"])
	assert.Equal(t, []string{"postgresql"}, drain(s.ReadyNodes()))

	s.Complete(n["postgresql"])
	_, open := <-s.ReadyNodes()
	assert.False(t, open, "channel closes once every node is finished")
}

func TestScheduler_FailSkipsTransitiveDependents(t *testing.T) {
	n := newNodes("a", "b", "c", "d", "e")
	n["b"].DependOn(n["a"])
	n["c"].DependOn(n["b"])
	n["d"].DependOn(n["a"])
	n["d"].DependOn(n["c"])

	s := New([]*node.Node{n["a"], n["b"], n["c"], n["d"], n["e"]})
	assert.ElementsMatch(t, []string{"a", "e"}, drain(s.ReadyNodes()))

	skipped := s.Fail(n["a"])
	var ids []string
	for _, sk := range skipped {
		ids = append(ids, sk.ID())
	}
	assert.ElementsMatch(t, []string{"b", "c", "d"}, ids, "each dependent is skipped exactly once")
	for _, id := range []string{"a", "b", "c", "d"} {
		select {
		case <-n[id].Done():
		default:
			t.Fatalf("%s should be finished", id)
		}
	}
	assert.Nil(t, s.Fail(n["a"]), "failing twice is a no-op")

	s.Complete(n["e"])
	_, open := <-s.ReadyNodes()
	assert.False(t, open)
}

func TestScheduler_Empty(t *testing.T) {
	s := New(nil)
	_, open := <-s.ReadyNodes()
	require.False(t, open)
}
