package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	id, v string
}

func newItems() *List[item] {
	return NewList(func(i item) string { return i.id })
}

func TestListReplaceKeepsOrder(t *testing.T) {
	l := newItems()
	l.Replace([]item{{"a", "1"}, {"b", "2"}, {"c", "3"}})

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []item{{"a", "1"}, {"b", "2"}, {"c", "3"}}, l.Items())
}

func TestListUpsert(t *testing.T) {
	l := newItems()
	l.Replace([]item{{"a", "1"}, {"b", "2"}})

	l.Upsert(item{"b", "new"})
	l.Upsert(item{"c", "3"})

	assert.Equal(t, []item{{"c", "3"}, {"a", "1"}, {"b", "new"}}, l.Items())
}

func TestListRemoveAndFind(t *testing.T) {
	l := newItems()
	l.Replace([]item{{"a", "1"}, {"b", "2"}})

	assert.True(t, l.Remove("a"))
	assert.False(t, l.Remove("a"))
	_, ok := l.Find("a")
	assert.False(t, ok)
	got, ok := l.Find("b")
	assert.True(t, ok)
	assert.Equal(t, "2", got.v)
}

func TestListItemsIsACopy(t *testing.T) {
	l := newItems()
	l.Replace([]item{{"a", "1"}})

	items := l.Items()
	items[0].v = "changed"

	got, _ := l.Find("a")
	assert.Equal(t, "1", got.v)
}
