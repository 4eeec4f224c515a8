package kanban_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
)

func TestStats(t *testing.T) {
	columns := []board.Column{
		{ID: "a", Name: "To Do"},
		{ID: "b", Name: "In Progress"},
		{ID: "c", Name: "DONE"},
		{ID: "d", Name: "Backlog"},
	}
	s := kanban.State{
		Columns: columns,
		Tasks: []board.Task{
			{ID: "1", ColumnID: "a"},
			{ID: "2", ColumnID: "a"},
			{ID: "3", ColumnID: "b"},
			{ID: "4", ColumnID: "c"},
			{ID: "5", ColumnID: "c"},
			{ID: "6", ColumnID: "c"},
			{ID: "7", ColumnID: "d"},
		},
	}

	require.Equal(t, kanban.Stats{TodoCount: 2, InProgressCount: 1, DoneCount: 3, TotalTasks: 6, ProgressPercent: 50}, s.Stats())
}

func TestStats_Rounding(t *testing.T) {
	s := kanban.State{
		Columns: []board.Column{{ID: "a", Name: "to do"}, {ID: "c", Name: "done"}},
		Tasks:   []board.Task{{ID: "1", ColumnID: "a"}, {ID: "2", ColumnID: "c"}, {ID: "3", ColumnID: "c"}},
	}
	require.Equal(t, 67, s.Stats().ProgressPercent)
	require.Equal(t, kanban.Stats{}, kanban.State{}.Stats())
}

func TestFilteredTasks(t *testing.T) {
	s := kanban.State{Tasks: fixture("p1").Tasks, SearchQuery: "MILK"}
	got := s.FilteredTasks()
	require.Len(t, got, 2)
	require.Equal(t, "Buy milk", got[0].Title)
	require.Equal(t, "Milk the cow", got[1].Title)

	s.SearchQuery = "quarterly"
	require.Equal(t, "Write report", s.FilteredTasks()[0].Title)

	s.SearchQuery = ""
	require.Len(t, s.FilteredTasks(), 3)

	s.SearchQuery = "   "
	require.Empty(t, s.FilteredTasks())

	s.SearchQuery = "milk "
	got = s.FilteredTasks()
	require.Len(t, got, 1)
	require.Equal(t, "Milk the cow", got[0].Title)
}

func TestFindColumnByName(t *testing.T) {
	s := kanban.State{Columns: fixture("p1").Columns}

	col, ok := s.FindColumnByName("in progress")
	require.True(t, ok)
	require.Equal(t, "c2", col.ID)

	_, ok = s.FindColumnByName("archive")
	require.False(t, ok)
}

func TestEngineViews(t *testing.T) {
	h := loaded(t, false)
	h.engine.SetSearchQuery("milk")

	require.Len(t, h.engine.FilteredTasks(), 2)
	require.Len(t, h.engine.TasksByColumn("c1"), 2)
	require.Equal(t, kanban.Stats{TodoCount: 2, DoneCount: 1, TotalTasks: 3, ProgressPercent: 33}, h.engine.Stats())
	col, ok := h.engine.FindColumnByName("Review")
	require.True(t, ok)
	require.Equal(t, "c4", col.ID)
}
