package parser

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "Example document", want: []string{"example", "document"}},
		{raw: "  example,DOCUMENT!! example ", want: []string{"example", "document"}},
		{raw: "snake_case and-dashes", want: []string{"snake_case", "and", "dashes"}},
		{raw: "", want: nil},
		{raw: "?!", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q := Parse(tt.raw)
			assert.Equal(t, tt.raw, q.Raw)
			if tt.want == nil {
				assert.Empty(t, q.Words)
				return
			}
			assert.Equal(t, tt.want, q.Words)
		})
	}
}

func TestFromValues(t *testing.T) {
	q, err := FromValues(url.Values{"word": {"Ex ample", "DOC"}, "q": {"ignored"}}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ex ample", "DOC"}, q.Words, "word parameters are not split")

	q, err = FromValues(url.Values{"q": {"a b c"}}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, q.Words)

	q, err = FromValues(url.Values{"q": {""}}, 10)
	require.NoError(t, err)
	assert.Empty(t, q.Words)

	_, err = FromValues(url.Values{}, 10)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = FromValues(url.Values{"q": {"a b c"}}, 2)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestQueryKey(t *testing.T) {
	a := &Query{Words: []string{"Document", "example", "EXAMPLE"}}
	b := &Query{Words: []string{"example", "document"}}
	assert.Equal(t, []string{"document", "example"}, a.Key())
	assert.Equal(t, a.Key(), b.Key())
}
