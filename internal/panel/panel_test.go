package panel

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "panel", []byte(HTML()))
}

func TestHTMLIsStatic(t *testing.T) {
	assert.Equal(t, HTML(), HTML())
	assert.Equal(t, 1, strings.Count(HTML(), "<iframe"))
	assert.Contains(t, HTML(), `src="`+ServerURL+`"`)
}

func TestPageInjectsLifecycleScript(t *testing.T) {
	page := Page("3f1c", "tok\"en")

	assert.True(t, strings.HasPrefix(page, strings.Split(HTML(), "</body>")[0]))
	assert.Contains(t, page, `var panel = "3f1c";`)
	assert.Contains(t, page, `var token = "tok\"en";`)
	assert.Equal(t, 1, strings.Count(page, "</body>"))
	assert.Less(t, strings.Index(page, "<script>"), strings.Index(page, "</body>"))
}

func TestShowCreatesSingleton(t *testing.T) {
	var created, revealed []Panel
	m := NewManager(Hooks{
		OnCreate: func(p Panel) { created = append(created, p) },
		OnReveal: func(p Panel) { revealed = append(revealed, p) },
	})

	p1, isNew := m.Show(0)
	require.True(t, isNew)
	assert.Equal(t, ViewType, p1.ViewType)
	assert.Equal(t, Title, p1.Title)
	assert.Equal(t, DefaultColumn, p1.Column)
	assert.NotEmpty(t, p1.ID)

	p2, isNew := m.Show(2)
	require.False(t, isNew)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, 2, p2.Column)
	assert.Equal(t, 1, p2.Reveals)

	assert.Len(t, created, 1)
	assert.Len(t, revealed, 1)
}

func TestCloseThenShowCreatesFreshPanel(t *testing.T) {
	var disposed []string
	m := NewManager(Hooks{OnDispose: func(p Panel) { disposed = append(disposed, p.ID) }})

	p1, _ := m.Show(1)
	require.True(t, m.Dispose(p1.ID))
	_, ok := m.Current()
	assert.False(t, ok)

	p2, isNew := m.Show(1)
	require.True(t, isNew)
	assert.NotEqual(t, p1.ID, p2.ID)
	assert.Equal(t, []string{p1.ID}, disposed)
}

func TestDisposeStaleIDIsNoop(t *testing.T) {
	m := NewManager(Hooks{})
	p1, _ := m.Show(1)
	m.Dispose(p1.ID)
	p2, _ := m.Show(1)

	assert.False(t, m.Dispose(p1.ID))
	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, p2.ID, cur.ID)
}

func TestDisposeCurrent(t *testing.T) {
	m := NewManager(Hooks{})
	assert.False(t, m.DisposeCurrent())
	m.Show(1)
	assert.True(t, m.DisposeCurrent())
	_, ok := m.Current()
	assert.False(t, ok)
}
