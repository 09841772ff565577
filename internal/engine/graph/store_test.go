package graph

import (
	"fmt"
	"sync"
	"testing"

	"rf2boot/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func active(s *Store, ids ...string) {
	for _, id := range ids {
		s.UpsertConceptState(id, ConceptState{Active: true})
	}
}

// diamond:  1 <- 2, 1 <- 3, 2 <- 4, 3 <- 4, 4 <- 5
func diamond() *Store {
	s := NewStore()
	active(s, "1", "2", "3", "4", "5")
	s.LinkParent("2", "1", Inferred)
	s.LinkParent("3", "1", Inferred)
	s.LinkParent("4", "2", Inferred)
	s.LinkParent("4", "3", Inferred)
	s.LinkParent("5", "4", Inferred)
	return s
}

func TestClosure_Diamond(t *testing.T) {
	s := diamond()

	ancestors, err := s.Ancestors("5", Inferred)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ancestors)

	descendants, err := s.Descendants("1", Inferred)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "4", "5"}, descendants)

	stated, err := s.Ancestors("5", Stated)
	require.NoError(t, err)
	assert.Empty(t, stated)

	ok, err := s.IsA("5", "3", Inferred)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsA("3", "5", Inferred)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClosure_CycleFailsBothDirections(t *testing.T) {
	s := NewStore()
	active(s, "10", "20", "30", "40")
	s.LinkParent("10", "20", Inferred)
	s.LinkParent("20", "30", Inferred)
	s.LinkParent("30", "10", Inferred)
	s.LinkParent("40", "10", Inferred)

	ancestors, err := s.Ancestors("40", Inferred)
	require.Error(t, err)
	assert.Nil(t, ancestors)
	assert.True(t, errors.IsCode(err, errors.CodeCycleDetected))
	assert.Contains(t, err.Error(), "10 -> 20 -> 30 -> 10")

	descendants, err := s.Descendants("20", Inferred)
	require.Error(t, err)
	assert.Nil(t, descendants)
	assert.True(t, errors.IsCode(err, errors.CodeCycleDetected))
}

func TestClosure_InactiveParent(t *testing.T) {
	s := NewStore()
	active(s, "100", "200")
	s.UpsertConceptState("300", ConceptState{Active: false})
	s.LinkParent("100", "200", Stated)
	s.LinkParent("200", "300", Stated)

	_, err := s.Ancestors("100", Stated)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIntegrity))
	assert.Contains(t, err.Error(), "inactive parent concept 300")

	_, err = s.Descendants("300", Stated)
	require.NoError(t, err, "an inactive start concept is not itself a violation")

	s.UpsertConceptState("100", ConceptState{Active: false})
	_, err = s.Descendants("200", Stated)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIntegrity))
}

func TestClosure_PlaceholderParent(t *testing.T) {
	s := NewStore()
	active(s, "100")
	s.LinkParent("100", "999", Inferred)

	require.NotNil(t, s.Get("999"))
	assert.False(t, s.Get("999").Loaded())
	_, err := s.Ancestors("100", Inferred)
	assert.True(t, errors.IsCode(err, errors.CodeIntegrity))
}

func TestClosure_UnknownConcept(t *testing.T) {
	_, err := NewStore().Ancestors("42", Inferred)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestClosure_CacheFollowsMutations(t *testing.T) {
	s := diamond()
	first, err := s.Ancestors("5", Inferred)
	require.NoError(t, err)
	first[0] = "mutated"

	again, err := s.Ancestors("5", Inferred)
	require.NoError(t, err)
	assert.Equal(t, "1", again[0], "callers get a copy of the cached result")

	s.UnlinkParent("4", "3", Inferred)
	s.UnlinkParent("3", "1", Inferred)
	after, err := s.Ancestors("5", Inferred)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "4"}, after)
	assert.Equal(t, []string{"2"}, s.Get("1").Children(Inferred))
}

func TestStore_UpsertsReplaceByID(t *testing.T) {
	s := NewStore()
	s.AddDescription("1", Description{ID: "d1", Term: "old", Active: true})
	s.AddDescription("1", Description{ID: "d1", Term: "new", Active: true})
	s.AddDescription("1", Description{ID: "d2", Term: "other", Active: true})
	s.AddRelationship("1", Relationship{ID: "r1", DestinationID: "2", TypeID: "t"})
	s.AddConcreteRelationship("1", Relationship{ID: "r2", Value: "#5", DestinationID: "ignored"})

	c := s.Get("1")
	require.Len(t, c.Descriptions(), 2)
	assert.Equal(t, "new", c.Descriptions()[0].Term)
	rels := c.Relationships()
	require.Len(t, rels, 2)
	assert.True(t, rels[1].Concrete)
	assert.Empty(t, rels[1].DestinationID)
	assert.NotNil(t, s.Get("2"), "relationship destinations get a node")
	assert.Nil(t, s.Get("ignored"))
	assert.Equal(t, []string{"1", "2"}, s.IDs())
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	s := NewStore()
	const workers, perWorker = 8, 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("%d", i)
				switch w % 4 {
				case 0:
					s.UpsertConceptState(id, ConceptState{Active: true})
				case 1:
					s.AddDescription(id, Description{ID: fmt.Sprintf("d%d-%d", w, i)})
				case 2:
					s.LinkParent(id, "root", Inferred)
				case 3:
					s.AddRefsetMembership(id, "refset")
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, perWorker+1, s.Len())
	assert.Len(t, s.Get("root").Children(Inferred), perWorker)
	assert.Len(t, s.Get("7").Descriptions(), 2)
	assert.True(t, s.Get("7").InRefset("refset"))
}
