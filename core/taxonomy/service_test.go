package taxonomy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryaedu/tutor/core"
)

type repoMock struct {
	entries []Entry
	inserts int
}

func (m *repoMock) CreateEntry(_ context.Context, e Entry) (Entry, error) {
	m.inserts++
	for _, x := range m.entries {
		if x.Kind != e.Kind {
			continue
		}
		if x.ID == e.ID {
			return Entry{}, core.ErrIDTaken
		}
		if x.Name == e.Name {
			return Entry{}, DuplicateName(e.Kind, e.Name)
		}
	}
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *repoMock) GetEntry(_ context.Context, kind Kind, id string) (Entry, error) {
	for _, x := range m.entries {
		if x.Kind == kind && x.ID == id {
			return x, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (m *repoMock) GetEntryByName(_ context.Context, kind Kind, name string) (Entry, error) {
	for _, x := range m.entries {
		if x.Kind == kind && x.Name == name {
			return x, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (m *repoMock) ListEntries(_ context.Context, kind Kind, _ bool) ([]Entry, error) {
	var out []Entry
	for _, x := range m.entries {
		if x.Kind == kind {
			out = append(out, x)
		}
	}
	return out, nil
}

// withIDs makes newIDFunc hand out ids in order, repeating the last one.
func withIDs(t *testing.T, ids ...string) {
	orig := newIDFunc
	i := 0
	newIDFunc = func(Kind) string {
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id
	}
	t.Cleanup(func() { newIDFunc = orig })
}

func TestService_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("blank name", func(t *testing.T) {
		svc := NewService(&repoMock{})
		_, err := svc.Add(ctx, Stream, "  ")
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		svc := NewService(&repoMock{})
		_, err := svc.Add(ctx, Kind("topic"), "Algebra")
		assert.Equal(t, ErrUnknownKind, err)
	})

	t.Run("duplicate name", func(t *testing.T) {
		repo := &repoMock{entries: []Entry{{Kind: Stream, ID: "S11111111", Name: "Science"}}}
		_, err := NewService(repo).Add(ctx, Stream, "Science")
		assert.True(t, core.IsDuplicate(err))
		assert.Zero(t, repo.inserts)
	})

	t.Run("taken id is regenerated", func(t *testing.T) {
		repo := &repoMock{entries: []Entry{{Kind: Stream, ID: "S11111111", Name: "Science"}}}
		withIDs(t, "S11111111", "S22222222")

		got, err := NewService(repo).Add(ctx, Stream, "Commerce")
		require.NoError(t, err)
		assert.Equal(t, "S22222222", got.ID)
		assert.Equal(t, "Commerce", got.Name)
		assert.Equal(t, 2, repo.inserts)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		repo := &repoMock{entries: []Entry{{Kind: Stream, ID: "S11111111", Name: "Science"}}}
		withIDs(t, "S11111111")

		_, err := NewService(repo).Add(ctx, Stream, "Commerce")
		assert.Equal(t, core.ErrIDTaken, err)
		assert.Equal(t, core.MaxIDAttempts, repo.inserts)
	})
}
