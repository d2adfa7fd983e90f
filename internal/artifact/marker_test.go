package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMarker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "replaces existing marker",
			doc:  "# Skill\n\n**Last updated:** 2024-01-01\n\nBody\n",
			want: "# Skill\n\n**Last updated:** 2025-06-01\n\nBody\n",
		},
		{
			name: "replaces marker with trailing text",
			doc:  "# Skill\n**Last updated:** yesterday (auto)\n",
			want: "# Skill\n**Last updated:** 2025-06-01\n",
		},
		{
			name: "inserts after first heading",
			doc:  "# Skill\n\nBody\n\n## Section\n",
			want: "# Skill\n\n**Last updated:** 2025-06-01\n\nBody\n\n## Section\n",
		},
		{
			name: "heading only",
			doc:  "# Skill",
			want: "# Skill\n\n**Last updated:** 2025-06-01\n",
		},
		{
			name: "no heading",
			doc:  "Body\n",
			want: "**Last updated:** 2025-06-01\n\nBody\n",
		},
		{
			name: "empty",
			doc:  "",
			want: "**Last updated:** 2025-06-01\n",
		},
		{
			name: "skips frontmatter comment",
			doc:  "---\nname: x\n# owner: docs team\n---\n\n# Title\n\nBody\n",
			want: "---\nname: x\n# owner: docs team\n---\n\n# Title\n\n**Last updated:** 2025-06-01\n\nBody\n",
		},
		{
			name: "frontmatter without heading",
			doc:  "---\nname: x\n---\nBody\n",
			want: "---\nname: x\n---\n**Last updated:** 2025-06-01\n\nBody\n",
		},
		{
			name: "marker-like line in frontmatter untouched",
			doc:  "---\n**Last updated:** keep\n---\n# T\n",
			want: "---\n**Last updated:** keep\n---\n# T\n\n**Last updated:** 2025-06-01\n",
		},
		{
			name: "unclosed fence is not frontmatter",
			doc:  "---\n# T\n",
			want: "---\n# T\n\n**Last updated:** 2025-06-01\n",
		},
		{
			name: "crlf replace",
			doc:  "# T\r\n**Last updated:** 2024-01-01\r\nBody\r\n",
			want: "# T\r\n**Last updated:** 2025-06-01\r\nBody\r\n",
		},
		{
			name: "crlf insert",
			doc:  "# T\r\n\r\nBody\r\n",
			want: "# T\r\n\r\n**Last updated:** 2025-06-01\r\n\r\nBody\r\n",
		},
		{
			name: "hashtag is not a heading",
			doc:  "#tag\n",
			want: "**Last updated:** 2025-06-01\n\n#tag\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SetMarker(tt.doc, "2025-06-01"))
		})
	}
}

func TestSetMarker_Idempotent(t *testing.T) {
	t.Parallel()

	once := SetMarker("# Skill\n\nBody\n", "2025-06-01")
	assert.Equal(t, once, SetMarker(once, "2025-06-01"))
}

func TestUpdateMarkerTimestamp(t *testing.T) {
	t.Parallel()

	g, dir := newTestGenerator(t)
	root := filepath.Join(dir, "SKILL.md")
	require.NoError(t, os.WriteFile(root, []byte("# Skill\n\n**Last updated:** 2024-01-01\n"), 0o640))

	require.NoError(t, g.UpdateMarkerTimestamp())

	data, err := os.ReadFile(root)
	require.NoError(t, err)
	assert.Equal(t, "# Skill\n\n**Last updated:** 2025-06-01\n", string(data))

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm(), "keeps permissions")
}

func TestUpdateMarkerTimestamp_MissingRootDoc(t *testing.T) {
	t.Parallel()

	g, _ := newTestGenerator(t)
	err := g.UpdateMarkerTimestamp()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
