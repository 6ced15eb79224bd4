package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryStartsAllEnabled(t *testing.T) {
	r := NewRegistry(&fakeSource{id: "a"}, &fakeSource{id: "b"})
	assert.True(t, r.IsEnabled("a"))
	assert.True(t, r.IsEnabled("b"))
	assert.Equal(t, []string{"a", "b"}, r.Enabled())
	assert.Equal(t, []string{"a", "b"}, r.IDs())
}

func TestRegistrySetEnabled(t *testing.T) {
	r := NewRegistry(&fakeSource{id: "a"}, &fakeSource{id: "b"})
	r.SetEnabled("a", false)
	assert.False(t, r.IsEnabled("a"))
	assert.Equal(t, []string{"b"}, r.Enabled())

	r.SetEnabled("ghost", true)
	assert.False(t, r.IsEnabled("ghost"))
	assert.Len(t, r.ListAll(), 2)
}

func TestRegistrySetEnabledSet(t *testing.T) {
	r := NewRegistry(&fakeSource{id: "a"}, &fakeSource{id: "b"}, &fakeSource{id: "c"})
	r.SetEnabledSet([]string{"c", "unknown"})
	assert.Equal(t, []string{"c"}, r.Enabled())
}

func TestRegistryReRegisterKeepsPosition(t *testing.T) {
	r := NewRegistry(&fakeSource{id: "a"}, &fakeSource{id: "b"})
	r.SetEnabled("a", false)
	replacement := &fakeSource{id: "a", platforms: []string{"gba"}}
	r.Register(replacement)

	all := r.ListAll()
	assert.Same(t, replacement, all[0])
	assert.False(t, r.IsEnabled("a"))
}
