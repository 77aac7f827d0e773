package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArticleExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int
		want  string
	}{
		{name: "block elements are separated", body: "<h2>Waspada</h2><p>Gunakan <strong>kelambu</strong>.</p>", limit: 60, want: "Waspada Gunakan kelambu."},
		{name: "scripts are dropped", body: "<p>Cek</p><script>alert(1)</script><p>jentik</p>", limit: 60, want: "Cek jentik"},
		{name: "entities are decoded", body: "<p>Air &amp; kelambu</p>", limit: 60, want: "Air & kelambu"},
		{name: "truncated", body: "<p>Bersihkan genangan air</p>", limit: 9, want: "Bersihkan…"},
		{name: "plain text", body: "tanpa markup", limit: 60, want: "tanpa markup"},
		{name: "empty", body: "", limit: 60, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, articleExcerpt(tt.body, tt.limit))
		})
	}
}
