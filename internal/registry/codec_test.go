package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func TestEncodeDecodePreservesOrder(t *testing.T) {
	at := time.Date(2024, 3, 9, 8, 30, 0, 0, time.UTC)

	repo := domain.NewRepoSource("acme", "handbook")
	repo.ID, repo.AddedAt = "b", at
	link := domain.NewLinkSource("https://example.com/x.pdf", "X")
	link.ID, link.AddedAt = "a", at.Add(time.Hour)
	other := domain.NewRepoSource("acme", "handbook")
	other.ID, other.AddedAt = "c", at.Add(2*time.Hour)

	in := []domain.Source{repo, link, other}

	data, err := Encode(in)
	require.NoError(t, err)

	out, skipped, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, in, out)
}

func TestDecodeDefaultsMissingKind(t *testing.T) {
	data := []byte(`[{"id":"1","owner":"o","repo":"r","addedAt":"2022-01-01T00:00:00Z"}]`)

	out, skipped, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, out, 1)
	assert.Equal(t, domain.KindRepoRelease, out[0].Kind)
	require.NotNil(t, out[0].Repo)
	assert.Nil(t, out[0].Link)
}

func TestDecodeKeepsBadRecordsRaw(t *testing.T) {
	data := []byte(`[
		{"id":"1","kind":"repoRelease","owner":"o","repo":"r"},
		{"id":"2","kind":"carrierPigeon"},
		{"id":"3","kind":"directLink","url":"no scheme","name":"n"},
		{"kind":"repoRelease","owner":"o","repo":"r"},
		{"id":{"nested":true}},
		{"id":"6","kind":"directLink","url":"https://example.com/a.pdf","name":"a"}
	]`)

	out, unreadable, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, unreadable, 4)
	require.Len(t, out, 2)
	assert.Equal(t, domain.SourceID("1"), out[0].ID)
	assert.Equal(t, domain.SourceID("6"), out[1].ID)

	encoded, err := Encode(out, unreadable...)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `{"id":"2","kind":"carrierPigeon"}`)
	assert.Contains(t, string(encoded), `"url":"no scheme"`)
	assert.Contains(t, string(encoded), `{"id":{"nested":true}}`)

	again, stillUnreadable, err := Decode(encoded)
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Len(t, stillUnreadable, 4)
}

func TestDecodeDerivesEmptyLinkName(t *testing.T) {
	data := []byte(`[{"id":1700000000001,"type":"link","url":"https://example.com/docs/User%20Guide.pdf","name":""}]`)

	out, unreadable, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, unreadable)
	require.Len(t, out, 1)
	assert.Equal(t, domain.KindDirectLink, out[0].Kind)
	assert.Equal(t, "User Guide", out[0].Link.DisplayName)
}

func TestDecodeEmpty(t *testing.T) {
	out, skipped, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, out)
}

func TestEncodeWritesKind(t *testing.T) {
	s := domain.NewRepoSource("o", "r")
	s.ID = "1"
	data, err := Encode([]domain.Source{s})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"repoRelease"`)
	assert.NotContains(t, string(data), `"type"`)
}
