package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachly/sourcing-engine/internal/models"
)

func TestMerge_SingleCandidateGroup_PassesThrough(t *testing.T) {
	c := models.Candidate{IdentityKey: "k1", Name: "Jane Doe", Skills: []string{"go"}}
	out := Merge([]models.Candidate{c})
	require.Len(t, out, 1)
	assert.Equal(t, "Jane Doe", out[0].Name)
}

// Scenario F: two RawRecords resolving to the same canonical URL with
// skills {Python,AWS} and {AWS,Kubernetes} must union to
// {Python,AWS,Kubernetes}.
func TestMerge_UnionsSkillsAcrossSameIdentity(t *testing.T) {
	a := models.Candidate{
		IdentityKey: "https://example.com/in/jdoe",
		Name:        "Jane Doe",
		Skills:      []string{"python", "aws"},
		Sources:     map[string]models.SourceEnrichment{"primary": {SourceID: "primary", FetchedAt: "2024-01-01T00:00:00Z"}},
	}
	b := models.Candidate{
		IdentityKey: "https://example.com/in/jdoe",
		Name:        "Jane Doe",
		Skills:      []string{"aws", "kubernetes"},
		Sources:     map[string]models.SourceEnrichment{"codehost": {SourceID: "codehost", FetchedAt: "2024-01-02T00:00:00Z"}},
	}

	out := Merge([]models.Candidate{a, b})
	require.Len(t, out, 1)
	assert.ElementsMatch(t, []string{"python", "aws", "kubernetes"}, out[0].Skills)
	assert.Contains(t, out[0].Sources, "primary")
	assert.Contains(t, out[0].Sources, "codehost")
}

func TestMerge_IsIdempotent(t *testing.T) {
	a := models.Candidate{IdentityKey: "k1", Name: "Jane", Skills: []string{"python", "aws"}}
	b := models.Candidate{IdentityKey: "k1", Name: "Jane", Skills: []string{"aws", "kubernetes"}}

	once := Merge([]models.Candidate{a, b})
	twice := Merge(once)
	require.Len(t, once, 1)
	require.Len(t, twice, 1)
	assert.ElementsMatch(t, once[0].Skills, twice[0].Skills)
}

func TestMerge_DistinctIdentitiesStayApart(t *testing.T) {
	a := models.Candidate{IdentityKey: "k1", Name: "Jane"}
	b := models.Candidate{IdentityKey: "k2", Name: "Bob"}
	out := Merge([]models.Candidate{a, b})
	assert.Len(t, out, 2)
}

func TestMerge_DedupesExperienceByCompositeKeyPreferringLongerDescription(t *testing.T) {
	a := models.Candidate{
		IdentityKey: "k1",
		Experience: []models.ExperienceEntry{
			{Title: "Engineer", Company: "Acme", Start: "2020", Description: "short"},
		},
	}
	b := models.Candidate{
		IdentityKey: "k1",
		Experience: []models.ExperienceEntry{
			{Title: "Engineer", Company: "Acme", Start: "2020", Description: "a much longer and more detailed description"},
		},
	}
	out := Merge([]models.Candidate{a, b})
	require.Len(t, out, 1)
	require.Len(t, out[0].Experience, 1)
	assert.Equal(t, "a much longer and more detailed description", out[0].Experience[0].Description)
}

func TestMerge_PrefersMostCompleteRecordForConflictingScalarFields(t *testing.T) {
	sparse := models.Candidate{
		IdentityKey: "k1",
		Name:        "J. Doe",
	}
	complete := models.Candidate{
		IdentityKey:       "k1",
		Name:              "Jane Doe",
		Headline:          "Staff Engineer at Acme",
		Location:          "NYC",
		PrimaryProfileURL: "https://example.com/in/jdoe",
		Skills:            []string{"go", "python", "aws"},
		Experience:        []models.ExperienceEntry{{Title: "Staff Engineer", Company: "Acme"}},
		Education:         []models.EducationEntry{{School: "MIT"}},
	}

	out := Merge([]models.Candidate{sparse, complete})
	require.Len(t, out, 1)
	assert.Equal(t, "Jane Doe", out[0].Name)
	assert.Equal(t, "Staff Engineer at Acme", out[0].Headline)
	assert.Equal(t, "NYC", out[0].Location)
	assert.Equal(t, "https://example.com/in/jdoe", out[0].PrimaryProfileURL)
}

func TestMerge_RecomputesCompleteness(t *testing.T) {
	a := models.Candidate{IdentityKey: "k1", Name: "Jane"}
	b := models.Candidate{
		IdentityKey: "k1",
		Headline:    "Engineer at Acme",
		Location:    "NYC",
		Skills:      []string{"go", "python", "aws"},
		Education:   []models.EducationEntry{{School: "MIT"}},
		Experience:  []models.ExperienceEntry{{Title: "Engineer", Company: "Acme"}},
	}
	out := Merge([]models.Candidate{a, b})
	require.Len(t, out, 1)
	assert.Greater(t, out[0].Completeness, 0.5)
}
