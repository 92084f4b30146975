package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachly/sourcing-engine/internal/models"
)

func TestParseHeadline_WithAtSeparator(t *testing.T) {
	title, company := parseHeadline("Senior Software Engineer at Google")
	assert.Equal(t, "Senior Software Engineer", title)
	assert.Equal(t, "Google", company)
}

func TestParseHeadline_StripsExpertiseTag(t *testing.T) {
	title, company := parseHeadline("React Engineer Expert at Acme")
	assert.Equal(t, "React Engineer", title)
	assert.Equal(t, "Acme", company)
}

func TestParseHeadline_NoAtSeparator(t *testing.T) {
	title, company := parseHeadline("Machine Learning Researcher")
	assert.Equal(t, "Machine Learning Researcher", title)
	assert.Equal(t, "", company)
}

func TestParseHeadline_CutsOnPipeSeparatorWhenNoAt(t *testing.T) {
	title, _ := parseHeadline("Product Manager | Ex-Stripe")
	assert.Equal(t, "Product Manager", title)
}

func TestCanonicalizeURL_LowercasesAndStripsQuery(t *testing.T) {
	got := canonicalizeURL("HTTPS://Example.COM/in/jdoe?utm_source=x#frag")
	assert.Equal(t, "https://example.com/in/jdoe", got)
}

func TestComputeIdentityKey_PrefersCanonicalURL(t *testing.T) {
	key := computeIdentityKey("https://example.com/in/jdoe", "Jane Doe", "NYC")
	assert.Equal(t, "https://example.com/in/jdoe", key)
}

func TestComputeIdentityKey_FallsBackToNameLocationHash(t *testing.T) {
	k1 := computeIdentityKey("", "Jane Doe", "New York, NY")
	k2 := computeIdentityKey("", "jane doe", "new york, ca") // same first token "new"
	assert.Equal(t, k1, k2)
	assert.NotEmpty(t, k1)
}

func TestNormalize_BuildsCandidateFromPayload(t *testing.T) {
	raw := models.RawRecord{
		SourceID:  "primary",
		FetchedAt: time.Now(),
		Payload: map[string]any{
			"name":        "Sarah Chen",
			"headline":    "ML Research Engineer at Google",
			"location":    "San Francisco, CA",
			"profile_url": "https://example.com/in/sarahchen",
			"skills":      []string{"PyTorch", "Python", "pytorch"},
			"experience": []any{
				map[string]any{"title": "ML Research Engineer", "company": "Google", "start": "2021", "end": "present"},
			},
			"education": []any{
				map[string]any{"degree": "MS Computer Science", "school": "Stanford", "year": "2020"},
			},
		},
	}

	c, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "Sarah Chen", c.Name)
	assert.Equal(t, "https://example.com/in/sarahchen", c.IdentityKey)
	assert.ElementsMatch(t, []string{"pytorch", "python"}, c.Skills)
	assert.Len(t, c.Experience, 1)
	assert.Len(t, c.Education, 1)
	// Skills dedupe to two, short of the skills>=3 field: 6 of 7 fields.
	assert.InDelta(t, 6.0/7.0, c.Completeness, 1e-9)
	assert.Contains(t, c.Sources, "primary")
}

func TestNormalize_SynthesizesExperienceFromHeadlineWhenMissing(t *testing.T) {
	raw := models.RawRecord{
		SourceID:  "microblog",
		FetchedAt: time.Now(),
		Payload: map[string]any{
			"name":     "Alex Kim",
			"headline": "Staff Engineer at Netflix",
		},
	}
	c, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, c.Experience, 1)
	assert.Equal(t, "Netflix", c.Experience[0].Company)
	assert.Equal(t, "Staff Engineer", c.Experience[0].Title)
}

func TestNormalize_EmptyPayloadIsAnError(t *testing.T) {
	_, err := Normalize(models.RawRecord{SourceID: "primary"})
	assert.Error(t, err)
}

func TestCompleteness_SparseRecordScoresLow(t *testing.T) {
	c := models.Candidate{Name: "Only Name"}
	got := Completeness(c)
	assert.Less(t, got, 0.5)
}
