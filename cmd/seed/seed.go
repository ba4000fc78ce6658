package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/contextstack/internal/models"
	"github.com/eldtechnologies/contextstack/internal/store"
)

type docIndexer interface {
	IndexDoc(ctx context.Context, doc *models.Doc) error
}

type seeder struct {
	store   store.DataStore
	indexer docIndexer // nil skips indexing
	logger  zerolog.Logger
}

type summary struct {
	Messages int
	Docs     int
	Indexed  int
	Tasks    int
}

type messagesFile struct {
	Messages []models.Message `json:"messages"`
}

type docsFile struct {
	Docs []models.Doc `json:"docs"`
}

type tasksFile struct {
	Tasks []models.Task `json:"tasks"`
}

// run loads every sample file present in dir. only, when non-empty,
// restricts which kinds are loaded. Missing files are skipped.
func (s *seeder) run(ctx context.Context, dir string, only []string) (summary, error) {
	var sum summary
	want := func(kind string) bool { return len(only) == 0 || slices.Contains(only, kind) }

	if want("messages") {
		var f messagesFile
		found, err := readJSON(filepath.Join(dir, "messages.json"), &f)
		if err != nil {
			return sum, err
		}
		if found {
			n, err := s.store.InsertMessages(ctx, f.Messages)
			if err != nil {
				return sum, fmt.Errorf("insert messages: %w", err)
			}
			sum.Messages = n
			s.logger.Info().Int("inserted", n).Int("total", len(f.Messages)).Msg("messages loaded")
		}
	}

	if want("docs") {
		var f docsFile
		found, err := readJSON(filepath.Join(dir, "docs.json"), &f)
		if err != nil {
			return sum, err
		}
		if found {
			for i := range f.Docs {
				doc, err := s.store.CreateDoc(ctx, &f.Docs[i])
				if err != nil {
					return sum, fmt.Errorf("create doc %q: %w", f.Docs[i].Title, err)
				}
				sum.Docs++

				if s.indexer == nil {
					continue
				}
				if err := s.indexer.IndexDoc(ctx, doc); err != nil {
					s.logger.Warn().Err(err).Str("title", doc.Title).Msg("failed to index doc")
					continue
				}
				sum.Indexed++
			}
			s.logger.Info().Int("stored", sum.Docs).Int("indexed", sum.Indexed).Msg("docs loaded")
		}
	}

	if want("tasks") {
		var f tasksFile
		found, err := readJSON(filepath.Join(dir, "tasks.json"), &f)
		if err != nil {
			return sum, err
		}
		if found {
			for i := range f.Tasks {
				if f.Tasks[i].Status != "" && !models.ValidTaskStatus(f.Tasks[i].Status) {
					return sum, fmt.Errorf("task %q: invalid status %q", f.Tasks[i].Title, f.Tasks[i].Status)
				}
				if _, err := s.store.CreateTask(ctx, &f.Tasks[i]); err != nil {
					return sum, fmt.Errorf("create task %q: %w", f.Tasks[i].Title, err)
				}
				sum.Tasks++
			}
			s.logger.Info().Int("created", sum.Tasks).Msg("tasks loaded")
		}
	}

	return sum, nil
}

// readJSON decodes path into out. It reports false when the file does not exist.
func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}
