package dircache

import "github.com/justyntemme/filer/internal/diritem"

// batch is a notification buffer keyed by leaf name. Putting a name twice
// keeps its first position and the latest snapshot.
type batch struct {
	order []string
	items map[string]*diritem.Item
}

func (b *batch) put(it *diritem.Item) {
	if b.items == nil {
		b.items = make(map[string]*diritem.Item)
	}
	if _, ok := b.items[it.Name]; !ok {
		b.order = append(b.order, it.Name)
	}
	b.items[it.Name] = it
}

func (b *batch) has(name string) bool {
	_, ok := b.items[name]
	return ok
}

func (b *batch) drop(name string) bool {
	if _, ok := b.items[name]; !ok {
		return false
	}
	delete(b.items, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

func (b *batch) len() int { return len(b.order) }

// take empties the buffer and returns its items in insertion order.
func (b *batch) take() []*diritem.Item {
	if len(b.order) == 0 {
		return nil
	}
	out := make([]*diritem.Item, len(b.order))
	for i, n := range b.order {
		out[i] = b.items[n]
	}
	b.order = nil
	b.items = nil
	return out
}

func (b *batch) reset() {
	b.order = nil
	b.items = nil
}
