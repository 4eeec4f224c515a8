package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `azwary mirrors one kanban project board at a time and keeps it in sync with the team's live changes.

Core concepts:
- Project: a board with a lead (its creator) and members. Archived projects are hidden.
- Column: an ordered lane. "to do", "in progress" and "done" feed the board stats.
- Task: a card. Its column is its status.
- Open project: the single board held in memory. Board tools act on it; open another to switch.

Workflow:
1) list_projects to find a project id.
2) open_project(project_id) loads the board and starts following live changes.
3) get_board / board_stats / search_tasks to read. Prefer column_id from get_board over names.
4) create_task / update_task / move_task / delete_task to change it. Moves and deletes apply
   immediately and are undone if the backend rejects them, so re-read after an error.
5) recent_activity shows what this machine synced, including reverted changes.

Docs:
- azwary://docs/concepts
- azwary://docs/sync
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "azwary://docs/concepts",
		Name:        "docs_concepts",
		Title:       "Board concepts",
		Description: "Projects, columns, tasks, members and how stats are counted.",
		Content: `# Board concepts

## Projects

You see the active projects you created (role ` + "`owner`" + `) and the ones you were added to
(role ` + "`member`" + `). A project listed both ways shows as owner. Newest first.

The project lead is the creator. Team members are the other members' usernames, without blanks
or duplicates.

## Columns and tasks

A task belongs to exactly one column through ` + "`column_id`" + `. A task can briefly point at a
column the board has not received yet; ` + "`get_board`" + ` lists such tasks under ` + "`unplaced`" + `.

## Stats

` + "`board_stats`" + ` counts tasks in the columns named "to do", "in progress" and "done" (exact name,
any case). ` + "`total_tasks`" + ` is the sum of those three, so tasks in other columns are not counted.
` + "`progress_percent`" + ` is done / total, rounded, and 0 for an empty board.
`,
	},
	{
		URI:         "azwary://docs/sync",
		Name:        "docs_sync",
		Title:       "How changes sync",
		Description: "Optimistic moves and deletes, rollbacks, live updates and conflicts.",
		Content: `# How changes sync

- Opening a project replaces the whole board at once. If the load fails the board is empty and
  the tool returns LOAD_FAILED; call open_project again to retry.
- ` + "`move_task`" + ` and ` + "`delete_task`" + ` change the board before the backend answers. If the backend
  rejects the change, the tasks are restored exactly as they were and the tool returns an error.
- ` + "`create_task`" + ` and ` + "`update_task`" + ` wait for the backend and show the stored row.
- Changes made by teammates arrive live. The last change applied wins; there is no merge.
- Deleting a column removes its tasks from the board.
- Archiving a project closes it here as well.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
