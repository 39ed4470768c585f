package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		c, err := New()
		require.NoError(t, err)
		assert.Equal(t, 1000, c.opts.MaxLength)
		assert.Equal(t, 200, c.opts.Overlap)
	})

	t.Run("InvalidParams", func(t *testing.T) {
		tests := []struct {
			name      string
			maxLength int
			overlap   int
		}{
			{name: "overlap equals max", maxLength: 100, overlap: 100},
			{name: "overlap exceeds max", maxLength: 100, overlap: 200},
			{name: "negative overlap", maxLength: 100, overlap: -1},
			{name: "zero max", maxLength: 0, overlap: 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := New(func(o *Options) {
					o.MaxLength = tt.maxLength
					o.Overlap = tt.overlap
				})
				require.Error(t, err)
				assert.IsType(t, &ErrInvalidParams{}, err)
			})
		}
	})
}

func TestSplit(t *testing.T) {
	t.Run("ShortDocumentSingleFragment", func(t *testing.T) {
		c, err := New(func(o *Options) {
			o.MaxLength = 20
			o.Overlap = 0
		})
		require.NoError(t, err)

		fragments := c.Split([]Document{
			{Text: "The cat sat.", Metadata: map[string]string{"source": "a.txt"}},
		})
		require.Len(t, fragments, 1)
		assert.Equal(t, "The cat sat.", fragments[0].Text)
		assert.Equal(t, "a.txt", fragments[0].Metadata["source"])
		assert.Equal(t, "0", fragments[0].Metadata[AttrChunk])
	})

	t.Run("EmptyAndWhitespaceDocuments", func(t *testing.T) {
		c, err := New()
		require.NoError(t, err)

		fragments := c.Split([]Document{
			{Text: ""},
			{Text: "   \n\t  "},
		})
		assert.Empty(t, fragments)
	})

	t.Run("FragmentBound", func(t *testing.T) {
		c, err := New(func(o *Options) {
			o.MaxLength = 30
			o.Overlap = 5
		})
		require.NoError(t, err)

		text := strings.Repeat("lorem ipsum dolor sit amet ", 20)
		fragments := c.Split([]Document{{Text: text}})
		require.NotEmpty(t, fragments)
		for _, f := range fragments {
			assert.LessOrEqual(t, len([]rune(f.Text)), 30)
		}
	})

	t.Run("CoverageReconstruction", func(t *testing.T) {
		tests := []struct {
			name      string
			text      string
			maxLength int
			overlap   int
		}{
			{name: "paragraphs", text: "first paragraph here.\n\nsecond paragraph follows.\n\nthird one closes the document.", maxLength: 30, overlap: 8},
			{name: "lines", text: "alpha beta\ngamma delta\nepsilon zeta\neta theta iota kappa", maxLength: 16, overlap: 4},
			{name: "words only", text: strings.Repeat("word ", 50), maxLength: 12, overlap: 3},
			{name: "no separators", text: strings.Repeat("x", 100), maxLength: 10, overlap: 2},
			{name: "unicode", text: strings.Repeat("héllo wörld ", 30), maxLength: 25, overlap: 6},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c, err := New(func(o *Options) {
					o.MaxLength = tt.maxLength
					o.Overlap = tt.overlap
				})
				require.NoError(t, err)

				fragments := c.Split([]Document{{Text: tt.text}})
				require.NotEmpty(t, fragments)

				var sb strings.Builder
				for i, f := range fragments {
					runes := []rune(f.Text)
					if i > 0 {
						runes = runes[tt.overlap:]
					}
					sb.WriteString(string(runes))
				}
				assert.Equal(t, tt.text, sb.String())
			})
		}
	})

	t.Run("OverlapShared", func(t *testing.T) {
		c, err := New(func(o *Options) {
			o.MaxLength = 15
			o.Overlap = 4
		})
		require.NoError(t, err)

		fragments := c.Split([]Document{{Text: "one two three four five six seven eight"}})
		require.Greater(t, len(fragments), 1)

		for i := 1; i < len(fragments); i++ {
			prev := []rune(fragments[i-1].Text)
			cur := []rune(fragments[i].Text)
			assert.Equal(t, string(prev[len(prev)-4:]), string(cur[:4]))
		}
	})

	t.Run("StableOrderAcrossDocuments", func(t *testing.T) {
		c, err := New(func(o *Options) {
			o.MaxLength = 12
			o.Overlap = 2
		})
		require.NoError(t, err)

		fragments := c.Split([]Document{
			{Text: "aaa bbb ccc ddd eee", Metadata: map[string]string{"source": "first"}},
			{Text: "fff ggg hhh iii jjj", Metadata: map[string]string{"source": "second"}},
		})
		require.NotEmpty(t, fragments)

		// All fragments of the first document precede those of the second,
		// and chunk ordinals restart per document.
		sawSecond := false
		lastChunk := -1
		for _, f := range fragments {
			switch f.Metadata["source"] {
			case "first":
				assert.False(t, sawSecond)
			case "second":
				if !sawSecond {
					sawSecond = true
					lastChunk = -1
				}
			}
			assert.Equal(t, lastChunk+1, atoiOrFail(t, f.Metadata[AttrChunk]))
			lastChunk++
		}
		assert.True(t, sawSecond)
	})

	t.Run("PrefersParagraphBoundary", func(t *testing.T) {
		c, err := New(func(o *Options) {
			o.MaxLength = 30
			o.Overlap = 0
		})
		require.NoError(t, err)

		fragments := c.Split([]Document{{Text: "short first paragraph.\n\nsecond paragraph is right here."}})
		require.Greater(t, len(fragments), 1)
		assert.Equal(t, "short first paragraph.\n\n", fragments[0].Text)
	})
}

func atoiOrFail(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, r := range s {
		require.True(t, r >= '0' && r <= '9')
		n = n*10 + int(r-'0')
	}
	return n
}
