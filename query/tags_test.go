package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postforum/models"
)

func tagNames(tags []models.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Name)
	}
	return out
}

func TestTagsFilterAndOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice", false)
	mustPost(t, s, NewPost{Type: models.PostQuestion, Title: "q", AuthorID: alice.ID,
		Tags: []string{"samtools", "RNA-Seq", "bwa", "rna_editing", "100%"}})

	all, err := s.Tags("").Fetch(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"100%", "RNA-Seq", "bwa", "rna_editing", "samtools"}, tagNames(all))

	rna, err := s.Tags("rna").Fetch(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"RNA-Seq", "rna_editing"}, tagNames(rna))

	// LIKE wildcards in q are matched literally
	underscore, err := s.Tags("_").Fetch(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"rna_editing"}, tagNames(underscore))

	percent, err := s.Tags("%").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, percent)

	n, err := s.Tags("").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
