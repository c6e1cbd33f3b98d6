package app

import (
	"context"
	"errors"
	"log"

	"quiz-assessment-service/internal/domain"
)

// MappingConsole is the admin's working view of one quiz: the assignable pool for a level
// and the questions picked from it. Commits and unmaps update the pool in place.
type MappingConsole struct {
	engine  *MappingEngine
	quizID  string
	groupID string

	pool      domain.Assignable
	selection *SelectionSet
}

func NewMappingConsole(engine *MappingEngine, quizID, groupID string) *MappingConsole {
	return &MappingConsole{
		engine:    engine,
		quizID:    quizID,
		groupID:   groupID,
		selection: NewSelectionSet(),
	}
}

// Load fetches the assignable pool for levelID ("" for every level) and drops the selection.
func (c *MappingConsole) Load(ctx context.Context, levelID string) error {
	pool, err := c.engine.FetchAssignable(ctx, c.quizID, c.groupID, levelID)
	if err != nil {
		return err
	}
	c.pool = pool
	c.selection.Reset()
	return nil
}

// Pool returns the current view.
func (c *MappingConsole) Pool() domain.Assignable { return c.pool }

// Selection exposes the pending picks for per-question and set-all edits.
func (c *MappingConsole) Selection() *SelectionSet { return c.selection }

// SelectAll picks every question in the unmapped pool.
func (c *MappingConsole) SelectAll() {
	for _, q := range c.pool.Unmapped {
		c.selection.Select(q.ID)
	}
}

// Commit maps the pending selection. On success the mapped questions leave the pool and the
// selection is cleared. On a conflict the pool is reloaded so the admin sees the other
// writer's mappings, and picks that are no longer assignable are dropped.
func (c *MappingConsole) Commit(ctx context.Context) (domain.MappingResult, error) {
	res, err := c.engine.MapSelected(ctx, c.quizID, c.groupID, c.selection.Selections())
	if err != nil {
		if errors.Is(err, domain.ErrMappingConflict) {
			if reloadErr := c.reloadPool(ctx); reloadErr != nil {
				log.Printf("reload pool for quiz %s: %v", c.quizID, reloadErr)
			}
		}
		return domain.MappingResult{}, err
	}
	c.pool.ApplyMapped(res)
	c.selection.Reset()
	return res, nil
}

// Unmap removes mappings and puts the restored questions back into the pool without
// refetching the bank.
func (c *MappingConsole) Unmap(ctx context.Context, mappingIDs []string) (domain.UnmapResult, error) {
	res, err := c.engine.UnmapSelected(ctx, c.quizID, mappingIDs)
	if err != nil {
		return domain.UnmapResult{}, err
	}
	c.pool.ApplyUnmapped(res)
	return res, nil
}

func (c *MappingConsole) reloadPool(ctx context.Context) error {
	pool, err := c.engine.FetchAssignable(ctx, c.quizID, c.groupID, c.pool.LevelID)
	if err != nil {
		return err
	}
	c.pool = pool

	assignable := make(map[string]struct{}, len(pool.Unmapped))
	for _, q := range pool.Unmapped {
		assignable[q.ID] = struct{}{}
	}
	for _, sel := range c.selection.Selections() {
		if _, ok := assignable[sel.QuestionID]; !ok {
			c.selection.Deselect(sel.QuestionID)
		}
	}
	return nil
}
